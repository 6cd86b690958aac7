package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kargtune/kargtune/pkg/config"
	"github.com/kargtune/kargtune/pkg/history"
	"github.com/kargtune/kargtune/pkg/optimizer"
	"github.com/kargtune/kargtune/pkg/profiles"
	"github.com/kargtune/kargtune/pkg/state"
	"github.com/kargtune/kargtune/pkg/telemetry"
)

// setupMetrics creates the metrics collector and, when --metrics-addr is set,
// starts serving the registry. The server lives for the rest of the process;
// commands exit shortly after, so there is no explicit teardown. With the flag
// unset the collector is a no-op.
func setupMetrics() *telemetry.Metrics {
	metrics := telemetry.NewMetrics(metricsAddr != "")

	handler := metrics.Handler()
	if handler == nil {
		return metrics
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	log.Info().Str("addr", metricsAddr).Msg("Serving metrics")
	return metrics
}

// buildOptimizer wires the optimizer from the loaded config. The history
// journal is best-effort: a journal that cannot be opened downgrades to a
// warning rather than blocking an apply.
func buildOptimizer(ctx context.Context, withJournal bool) (*optimizer.Optimizer, *history.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := profiles.NewCatalog(cfg.Profiles)
	if err != nil {
		return nil, nil, err
	}

	var journal *history.Store
	if withJournal {
		journal = history.NewStore(cfg.HistoryPath)
		if err := journal.Init(ctx); err != nil {
			log.Warn().Err(err).Msg("History journal unavailable, continuing without it")
			journal = nil
		}
	}

	opts := optimizer.Options{
		GrubConfigPath:  cfg.GrubConfigPath,
		TransactionWait: cfg.TransactionWait,
		Store:           state.NewStore(cfg.StatePath, toolVersion),
		Catalog:         catalog,
		Metrics:         setupMetrics(),
	}
	if journal != nil {
		opts.Journal = journal
	}

	opt, err := optimizer.New(ctx, opts)
	if err != nil {
		if journal != nil {
			journal.Close()
		}
		return nil, nil, err
	}
	return opt, journal, nil
}
