package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/danielpatrickdp/adaptive-layout/internal/affordance"
	"github.com/danielpatrickdp/adaptive-layout/internal/compose"
	"github.com/danielpatrickdp/adaptive-layout/internal/config"
	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/layout"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-layout/internal/ports"
	"github.com/danielpatrickdp/adaptive-layout/internal/signals"
	"github.com/danielpatrickdp/adaptive-layout/internal/state"
	"github.com/danielpatrickdp/adaptive-layout/internal/telemetry"
)

// #region runtime
// runtime is the wired decision stack for one process.
type runtime struct {
	cfg     config.Config
	engine  *engine.Engine
	orch    *orchestrator.Orchestrator
	bus     *telemetry.Bus
	closers []io.Closer
	persist bool // save the engine on Close
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// openRuntime opens the configured stores, restores the engine and wires
// the orchestrator. withBus attaches a telemetry bus.
func openRuntime(cfg config.Config, withBus bool) (_ *runtime, err error) {
	rt := &runtime{cfg: cfg}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()
	log := logging.New("controller")

	var blobs ports.BlobStore
	var prov *logging.Provenance
	switch cfg.Storage {
	case config.StorageMemory:
		blobs = state.NewMemStore()
	case config.StorageBolt:
		bs, err := state.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		rt.closers = append(rt.closers, bs)
		blobs = bs
	default:
		st, err := state.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		rt.closers = append(rt.closers, st)
		blobs = st
		if prov, err = logging.NewProvenance(st.DB()); err != nil {
			return nil, err
		}
	}
	// bolt keeps snapshots only; provenance still goes to SQLite
	if cfg.Storage == config.StorageBolt && cfg.DBPath != "" {
		st, err := state.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open provenance db: %w", err)
		}
		rt.closers = append(rt.closers, st)
		if prov, err = logging.NewProvenance(st.DB()); err != nil {
			return nil, err
		}
	}

	if rt.engine, err = engine.New(cfg.Engine, blobs); err != nil {
		return nil, err
	}
	switch err := rt.engine.Load(); {
	case errors.Is(err, engine.ErrNoSnapshot):
		log.Info("no saved engine state, starting cold")
	case err != nil:
		log.Warn("engine state not restored, starting cold", slog.Any("error", err))
	}

	// the configured strategy wins over the one saved with the snapshot
	if saved := rt.engine.Stats().Bandits.Active; saved != cfg.Engine.ActiveStrategy {
		if err := rt.engine.SetActiveStrategy(cfg.Engine.ActiveStrategy); err != nil {
			return nil, err
		}
		log.Info("bandit strategy switched", slog.String("saved", saved), slog.String("active", cfg.Engine.ActiveStrategy))
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithDefaults(cfg.Defaults),
		orchestrator.WithProducer(signals.NewProducer(cfg.Signals)),
		orchestrator.WithAdaptive(cfg.Adaptive),
	}
	if prov != nil {
		opts = append(opts, orchestrator.WithProvenance(prov))
	}
	if withBus {
		rt.bus = telemetry.NewBus(cfg.TelemetryBuffer)
		opts = append(opts, orchestrator.WithPublisher(rt.bus))
	}
	rt.orch, err = orchestrator.NewOrchestrator(rt.engine,
		layout.NewGenerator(layout.WithMaxEntries(cfg.CacheEntries)),
		compose.NewComposer(reg), opts...)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// newRegistry loads the built-in components plus the configured catalog.
func newRegistry(cfg config.Config) (*affordance.Registry, error) {
	reg := affordance.NewRegistry()
	reg.RegisterAll(affordance.DefaultCatalog())
	if cfg.Catalog != "" {
		entries, err := affordance.LoadCatalog(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		n := reg.RegisterAll(entries)
		logging.New("controller").Info("catalog loaded", slog.String("path", cfg.Catalog), slog.Int("components", n))
	}
	return reg, nil
}

// Close saves the engine when persist is set and releases the stores.
func (rt *runtime) Close() error {
	var errs []error
	if rt.persist && rt.engine != nil {
		if err := rt.engine.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.bus != nil {
		rt.bus.Close()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// #endregion runtime

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
