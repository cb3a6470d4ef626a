package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/server"
	"github.com/danielpatrickdp/adaptive-layout/internal/telemetry"
)

var serveFlags struct {
	grpcAddr string
	httpAddr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve decisions over gRPC and HTTP until interrupted",
	Long: `Starts the gRPC LayoutService and the HTTP API (/v1/decide, /v1/feedback,
/v1/stats, /healthz, /metrics). Engine state is restored on start and saved
on shutdown.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.grpcAddr, "grpc-addr", "", "gRPC listen address (overrides config)")
	f.StringVar(&serveFlags.httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.grpcAddr != "" {
		cfg.GRPCAddr = serveFlags.grpcAddr
	}
	if serveFlags.httpAddr != "" {
		cfg.HTTPAddr = serveFlags.httpAddr
	}

	rt, err := openRuntime(cfg, true)
	if err != nil {
		return err
	}
	rt.persist = true
	defer rt.Close()
	log := logging.New("controller")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewPromListener(reg, rt.bus)
	if err != nil {
		return err
	}
	rt.bus.Subscribe(ctx, metrics)
	rt.bus.Subscribe(ctx, telemetry.ListenerFunc(func(e telemetry.Event) {
		log.Debug("telemetry", slog.String("type", e.Type), slog.String("decision_id", e.DecisionID))
	}))

	return server.Run(ctx, rt.orch, server.Options{
		GRPCAddr: cfg.GRPCAddr,
		HTTPAddr: cfg.HTTPAddr,
		Gatherer: reg,
		Ready: func(grpcAddr, httpAddr string) {
			log.Info("controller ready",
				slog.String("grpc", grpcAddr), slog.String("http", httpAddr),
				slog.String("storage", cfg.Storage), slog.Bool("adaptive", cfg.Adaptive))
		},
	})
}
