package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/adaptive-layout/internal/codec"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/orchestrator"
)

const shutdownTimeout = 5 * time.Second

// #region options
// Options configures Run. An empty address disables that listener.
type Options struct {
	GRPCAddr string
	HTTPAddr string
	Gatherer prometheus.Gatherer
	// Ready, when set, receives the bound addresses once both listeners are up.
	Ready func(grpcAddr, httpAddr string)
}

// #endregion options

// #region run
// Run serves gRPC and HTTP until ctx is done or a listener fails, then
// shuts both down gracefully.
func Run(ctx context.Context, orch *orchestrator.Orchestrator, opts Options) error {
	if opts.GRPCAddr == "" && opts.HTTPAddr == "" {
		return errors.New("server: no listen address")
	}
	log := logging.New("server")

	var grpcLis, httpLis net.Listener
	var err error
	if opts.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", opts.GRPCAddr); err != nil {
			return fmt.Errorf("listen grpc %s: %w", opts.GRPCAddr, err)
		}
	}
	if opts.HTTPAddr != "" {
		if httpLis, err = net.Listen("tcp", opts.HTTPAddr); err != nil {
			if grpcLis != nil {
				grpcLis.Close()
			}
			return fmt.Errorf("listen http %s: %w", opts.HTTPAddr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if grpcLis != nil {
		gs := grpc.NewServer(grpc.UnaryInterceptor(codec.LoggingInterceptor()))
		codec.Register(gs, codec.NewServer(orch))
		g.Go(func() error {
			log.Info("grpc listening", slog.String("addr", grpcLis.Addr().String()))
			if err := gs.Serve(grpcLis); err != nil {
				return fmt.Errorf("serve grpc: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			stopped := make(chan struct{})
			go func() {
				gs.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(shutdownTimeout):
				gs.Stop()
			}
			return nil
		})
	}

	if httpLis != nil {
		hs := &http.Server{Handler: NewHandler(orch, opts.Gatherer), ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			log.Info("http listening", slog.String("addr", httpLis.Addr().String()))
			if err := hs.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return hs.Shutdown(sctx)
		})
	}

	if opts.Ready != nil {
		opts.Ready(addrOf(grpcLis), addrOf(httpLis))
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

func addrOf(l net.Listener) string {
	if l == nil {
		return ""
	}
	return l.Addr().String()
}

// #endregion run
