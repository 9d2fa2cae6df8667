// Package app wires the dispatch engine to its infrastructure: MQTT
// transport, storage snapshots, metrics sinks and the decision log.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yoldauz/dispatchd/config"
	"github.com/yoldauz/dispatchd/core/dispatch"
	"github.com/yoldauz/dispatchd/core/history"
	coremetrics "github.com/yoldauz/dispatchd/core/metrics"
	"github.com/yoldauz/dispatchd/core/referral"
	"github.com/yoldauz/dispatchd/infra/logger"
	"github.com/yoldauz/dispatchd/infra/metrics"
	"github.com/yoldauz/dispatchd/infra/mqtt"
	"github.com/yoldauz/dispatchd/infra/storage"
	"github.com/yoldauz/dispatchd/internal/eventbus"
)

// Service orchestrates the engine, transport and persistence.
type Service struct {
	Engine  *dispatch.Engine
	Cargos  *storage.MemoryCargoRepository
	Drivers *storage.MemoryDriverRegistry
	Ledger  *referral.MemoryLedger

	client   *mqtt.PahoClient
	snapshot *storage.Snapshot
	store    history.Store
	bus      eventbus.EventBus
	log      logger.Logger
	cfg      *config.Config
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusPort != "" {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxURL != "" {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	cargos := storage.NewMemoryCargoRepository()
	drivers := storage.NewMemoryDriverRegistry()
	ledger := referral.NewMemoryLedger()

	snap := storage.NewSnapshot(cfg.Storage.SnapshotPath, cargos, drivers, logg)
	if err := snap.Load(); err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}

	var store history.Store
	switch cfg.History.Backend {
	case "rotating":
		store, err = history.NewRotatingJSONLStore(cfg.History.Path,
			cfg.History.MaxSizeMB, cfg.History.MaxBackups, cfg.History.MaxAgeDays)
	default:
		store, err = history.NewJSONLStore(cfg.History.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}

	bus := eventbus.New()
	engine, err := dispatch.NewEngine(cfg.Dispatch, cargos, drivers, ledger, client, bus, logg, sink)
	if err != nil {
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	engine.SetSnapshotter(snap)
	engine.SetHistoryStore(store)
	engine.SetFallbackPool(cfg.FallbackDispatchers)

	if err := client.Listen(engine); err != nil {
		return nil, fmt.Errorf("action listener: %w", err)
	}

	return &Service{
		Engine:   engine,
		Cargos:   cargos,
		Drivers:  drivers,
		Ledger:   ledger,
		client:   client,
		snapshot: snap,
		store:    store,
		bus:      bus,
		log:      logg,
		cfg:      cfg,
	}, nil
}

// Run starts the background machinery and blocks until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.Storage.SnapshotIntervalSeconds) * time.Second
	go s.snapshot.Run(ctx, interval)
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	s.snapshot.Wait()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.Engine.Close()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	s.client.Close()
	return err
}
