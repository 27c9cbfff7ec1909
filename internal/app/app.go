// Package app assembles the search pipeline from configuration.
// It is the composition root shared by the HTTP server and the SDK.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kfsearch/internal/config"
	"github.com/kailas-cloud/kfsearch/internal/db"
	dbMilvus "github.com/kailas-cloud/kfsearch/internal/db/milvus"
	dbPgvector "github.com/kailas-cloud/kfsearch/internal/db/pgvector"
	dbRedis "github.com/kailas-cloud/kfsearch/internal/db/redis"
	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/metrics"
	"github.com/kailas-cloud/kfsearch/internal/repository/embcache"
	"github.com/kailas-cloud/kfsearch/internal/repository/framestore"
	"github.com/kailas-cloud/kfsearch/internal/repository/source"
	openaiEmb "github.com/kailas-cloud/kfsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/kfsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/kfsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/kfsearch/internal/usecase/search"
)

// App holds the wired services and the connections they own.
type App struct {
	Search *searchuc.Service
	Health *healthuc.Service

	textStore *dbRedis.Store
	milvus    *dbMilvus.Store
	postgres  *dbPgvector.Store
}

// Build connects to every backend the configuration references and wires the
// search and health services. On error, connections opened so far are closed.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}
	if err := a.build(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var err error
	backends := make(map[string]healthuc.Pinger)

	if cfg.NeedsDatabase() {
		a.textStore, err = dbRedis.NewStore(dbRedis.Config{
			Driver:   cfg.Database.Driver,
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err = a.textStore.WaitForReady(ctx, readiness); err != nil {
			return fmt.Errorf("%s not ready: %w", cfg.Database.Driver, err)
		}
		backends["text_store"] = a.textStore
		logger.Info("Connected to text store",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
	}

	if cfg.NeedsDriver("milvus") {
		a.milvus, err = dbMilvus.NewStore(ctx, dbMilvus.Config{
			Address:  cfg.Milvus.Address,
			Username: cfg.Milvus.Username,
			Password: cfg.Milvus.Password,
			APIKey:   cfg.Milvus.APIKey,
		})
		if err != nil {
			return err
		}
		for _, name := range denseNames(cfg) {
			d := cfg.Sources.Dense[name]
			if d.Driver != "milvus" {
				continue
			}
			if err = a.milvus.EnsureLoaded(ctx, d.Collection); err != nil {
				return fmt.Errorf("sources.dense.%s: %w", name, err)
			}
		}
		backends["milvus"] = a.milvus
		logger.Info("Connected to milvus", zap.String("address", cfg.Milvus.Address))
	}

	if cfg.NeedsDriver("pgvector") {
		a.postgres, err = dbPgvector.NewStore(ctx, dbPgvector.Config{
			URL:      cfg.Postgres.URL,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return err
		}
		backends["postgres"] = a.postgres
		logger.Info("Connected to postgres")
	}

	sources, embedders, err := a.buildSources(ctx, cfg, logger)
	if err != nil {
		return err
	}

	frames := framestore.New(cfg.Frames.Root, cfg.Frames.Extensions)
	backends["frames"] = frames

	a.Search = searchuc.New(sources, frames, searchuc.Options{
		Alpha:          cfg.Search.Alpha,
		BM25K1:         cfg.Search.BM25K1,
		BM25B:          cfg.Search.BM25B,
		PublicRoot:     cfg.Search.PublicImageRoot,
		ListingWorkers: cfg.Search.ListingWorkers,
	}, logger)
	a.Health = healthuc.New(backends, embedders)

	logger.Info("Search pipeline ready",
		zap.Strings("models", sources.Models()),
		zap.Bool("ocr", sources.OCR != nil),
		zap.Bool("speech", sources.Speech != nil),
		zap.String("frames_root", cfg.Frames.Root),
	)
	return nil
}

// Close releases every backend connection. Safe to call on a partially built App.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.milvus != nil {
		a.milvus.Close()
	}
	if a.textStore != nil {
		a.textStore.Close()
	}
}

func (a *App) buildSources(
	ctx context.Context, cfg *config.Config, logger *zap.Logger,
) (*searchuc.Sources, map[string]healthuc.EmbeddingChecker, error) {
	sources := &searchuc.Sources{
		Dense:        make(map[string]searchuc.DenseSource, len(cfg.Sources.Dense)),
		CaptionModel: cfg.Sources.CaptionModel,
		NoCapModel:   cfg.Sources.NoCapModel,
	}
	embedders := make(map[string]healthuc.EmbeddingChecker)
	built := make(map[string]domain.Embedder)

	for _, name := range denseNames(cfg) {
		d := cfg.Sources.Dense[name]

		emb, ok := built[d.Vectorizer]
		if !ok {
			emb = a.buildEmbedder(cfg, d.Vectorizer, logger)
			built[d.Vectorizer] = emb
			embedders[d.Vectorizer] = embeddingHealthCheck(emb)
		}

		index, err := a.denseIndex(d.Driver)
		if err != nil {
			return nil, nil, fmt.Errorf("sources.dense.%s: %w", name, err)
		}

		sources.Dense[name] = source.NewDense(source.DenseConfig{
			Name:         name,
			Collection:   d.Collection,
			VectorField:  d.VectorField,
			PathField:    d.PathField,
			CaptionField: d.CaptionField,
			Metric:       d.Metric,
			EFExtra:      d.EFExtra,
			Timeout:      time.Duration(d.TimeoutMS) * time.Millisecond,
		}, emb, index, logger)
	}

	var err error
	if sources.OCR, err = a.keywordSource(ctx, "ocr", cfg.Sources.OCR, logger); err != nil {
		return nil, nil, err
	}
	if sources.Speech, err = a.keywordSource(ctx, "speech", cfg.Sources.Speech, logger); err != nil {
		return nil, nil, err
	}
	return sources, embedders, nil
}

func (a *App) denseIndex(driver string) (db.VectorSearcher, error) {
	switch driver {
	case "milvus":
		if a.milvus != nil {
			return a.milvus, nil
		}
	case "pgvector":
		if a.postgres != nil {
			return a.postgres, nil
		}
	case dbRedis.DriverRedis, dbRedis.DriverValkey:
		if a.textStore != nil {
			return a.textStore, nil
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return nil, fmt.Errorf("driver %q is not connected", driver)
}

// keywordSource returns nil for an unconfigured mode. The interface return keeps
// the nil untyped, so Sources.KeywordFor reports the mode as not configured.
func (a *App) keywordSource(
	ctx context.Context, name string, kc *config.KeywordSourceConfig, logger *zap.Logger,
) (searchuc.KeywordSource, error) {
	if kc == nil {
		return nil, nil
	}
	if a.textStore == nil || !a.textStore.SupportsTextSearch(ctx) {
		return nil, fmt.Errorf("sources.%s requires a database driver with full-text search", name)
	}
	return source.NewKeyword(source.KeywordConfig{
		Name:      name,
		Index:     kc.Index,
		TextField: kc.TextField,
		PathField: kc.PathField,
		Fuzzy:     kc.Fuzzy == nil || *kc.Fuzzy,
		Timeout:   time.Duration(kc.TimeoutMS) * time.Millisecond,
	}, a.textStore, logger), nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func (a *App) buildEmbedder(cfg *config.Config, vectorizer string, logger *zap.Logger) domain.Embedder {
	vecCfg := cfg.Embedding.Vectorizers[vectorizer]
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   vecCfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if a.textStore != nil && cfg.Embedding.CacheTTLSec > 0 {
		ttl := time.Duration(cfg.Embedding.CacheTTLSec) * time.Second
		embedder = embcache.New(base, a.textStore, vecCfg.Model, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, vecCfg.Provider, vecCfg.Model, vecCfg.Dimensions, logger,
	)

	// Outermost, so the cache key includes the instruction.
	if vecCfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, vecCfg.QueryInstruction)
	}
	return embedder
}

// embeddingHealthCheck checks the outermost embedder when the chain exposes a check.
func embeddingHealthCheck(embedder domain.Embedder) healthuc.CheckFunc {
	return func(ctx context.Context) error {
		hc, ok := embedder.(domain.HealthChecker)
		if !ok {
			return nil
		}
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
		return nil
	}
}

// denseNames returns dense source names in a stable order so startup is reproducible.
func denseNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Sources.Dense))
	for name := range cfg.Sources.Dense {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
