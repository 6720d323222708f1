package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/enrich"
	"github.com/sells-group/provider-directory/internal/pipeline"
	"github.com/sells-group/provider-directory/internal/store"
	"github.com/sells-group/provider-directory/pkg/npi"
	"github.com/sells-group/provider-directory/pkg/places"
)

// pipelineEnv holds the initialized store, clients, and pipeline shared by
// the run and batch commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "provider_directory.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store and all collaborators and builds the
// Pipeline. Callers should defer env.Close(). With --offline the registry,
// places, and enrichment collaborators are replaced by stubs.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if offline {
		zap.L().Info("offline mode, using stub collaborators")
		p := pipeline.New(cfg, st,
			&pipeline.StubRegistryClient{},
			&pipeline.StubPlacesClient{},
			&pipeline.StubEnricher{},
			&pipeline.StubFetcher{},
		)
		return &pipelineEnv{Store: st, Pipeline: p}, nil
	}

	registryClient := npi.NewClient(
		npi.WithBaseURL(cfg.Registry.BaseURL),
		npi.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Registry.TimeoutSecs) * time.Second}),
		npi.WithRateLimit(cfg.Registry.RequestsPerSec),
	)
	placesClient := places.NewClient(cfg.Places.Key,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Places.TimeoutSecs) * time.Second}),
		places.WithRateLimit(cfg.Places.RequestsPerSec),
	)
	if cfg.Places.Key == "" {
		zap.L().Warn("PROVIDER_PLACES_KEY not set, address and place lookups will fail closed")
	}

	fetcher := enrich.NewFetcher(enrich.FetchOptions{
		UserAgent: cfg.Enrich.UserAgent,
		Timeout:   time.Duration(cfg.Enrich.TimeoutSecs) * time.Second,
		CacheTTL:  time.Duration(cfg.Enrich.CacheTTLHours) * time.Hour,
	})
	enricher := enrich.Chain{
		enrich.NewRegistryEnricher(registryClient),
		enrich.NewWebsiteEnricher(placesClient, fetcher),
	}

	p := pipeline.New(cfg, st, registryClient, placesClient, enricher, fetcher)
	return &pipelineEnv{Store: st, Pipeline: p}, nil
}
