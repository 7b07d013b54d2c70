// Package bootstrap builds the infrastructure and services described by a
// config.Config. It is shared by the HTTP server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/catalogmatch/backend/config"
	"github.com/catalogmatch/backend/internal/domain"
	"github.com/catalogmatch/backend/internal/infrastructure/cache"
	"github.com/catalogmatch/backend/internal/infrastructure/catalog"
	"github.com/catalogmatch/backend/internal/infrastructure/events"
	"github.com/catalogmatch/backend/internal/infrastructure/llm"
	"github.com/catalogmatch/backend/internal/infrastructure/vectorindex"
	"github.com/catalogmatch/backend/internal/usecase"
)

// Resources holds the opened infrastructure
type Resources struct {
	Catalog    events.CatalogStore
	Cache      domain.CacheRepository
	Embedder   domain.Embedder
	Index      domain.VectorIndex
	Classifier domain.ItemClassifier
	Judge      domain.RelevanceJudge

	closers []func() error
}

// Close releases everything Open acquired, in reverse order
func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Open connects every backend selected by cfg. On error, whatever was
// already opened is closed.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (res *Resources, err error) {
	res = &Resources{}
	defer func() {
		if err != nil {
			_ = res.Close()
			res = nil
		}
	}()

	if err = res.openCatalog(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err = res.openCache(ctx, cfg); err != nil {
		return nil, err
	}
	if err = res.openProviders(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err = res.openIndex(ctx, cfg); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Resources) openCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	switch cfg.Catalog.Backend {
	case "sqlite":
		store, err := catalog.NewSQLiteStore(cfg.Catalog.SQLitePath)
		if err != nil {
			return err
		}
		r.closers = append(r.closers, store.Close)
		r.Catalog = store
	default:
		store, err := catalog.NewMemoryStore()
		if err != nil {
			return err
		}
		r.Catalog = store
	}

	if cfg.Catalog.SeedFile == "" {
		return nil
	}
	existing, err := r.Catalog.All(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info().Int("items", len(existing)).Msg("catalog already populated, skipping seed")
		return nil
	}

	items, err := catalog.LoadSeedFile(cfg.Catalog.SeedFile)
	if err != nil {
		return err
	}
	if err := r.Catalog.Upsert(ctx, items); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info().Int("items", len(items)).Str("file", cfg.Catalog.SeedFile).Msg("catalog seeded")
	return nil
}

func (r *Resources) openCache(ctx context.Context, cfg *config.Config) error {
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, "")
		if err != nil {
			return err
		}
		r.closers = append(r.closers, redisCache.Close)
		r.Cache = redisCache
		return nil
	}

	memoryCache := cache.NewMemoryCache(cfg.Cache.CleanupInterval)
	r.closers = append(r.closers, memoryCache.Close)
	r.Cache = memoryCache
	return nil
}

func (r *Resources) openProviders(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	llmCfg := LLMConfig(cfg)
	limiter := llm.NewLimiter(llmCfg.RequestsPerSecond)

	r.Classifier = usecase.PatternClassifier{}
	r.Judge = usecase.PassthroughJudge{}
	if cfg.ChatEnabled() {
		chat, err := llm.NewChatModel(ctx, llmCfg)
		if err != nil {
			return fmt.Errorf("create chat model: %w", err)
		}
		client := llm.NewChatClient(chat, limiter)
		r.Classifier = llm.NewClassifier(client)
		r.Judge = llm.NewJudge(client)
	}

	if !cfg.EmbeddingsEnabled() {
		logger.Warn().Msg("no embedding provider configured, material search will find nothing")
		r.Embedder = disabledEmbedder{}
		return nil
	}

	model, err := llm.NewEmbeddingModel(ctx, llmCfg)
	if err != nil {
		return fmt.Errorf("create embedding model: %w", err)
	}
	cached, err := llm.NewCachedEmbedder(
		llm.NewEmbedder(model, limiter),
		llm.EmbeddingModelName(llmCfg),
		cfg.Cache.EmbeddingLRUSize,
		r.Cache,
		cfg.Cache.TTL,
		logger,
	)
	if err != nil {
		return err
	}
	r.Embedder = cached
	return nil
}

func (r *Resources) openIndex(ctx context.Context, cfg *config.Config) error {
	if cfg.Vector.Backend != "qdrant" {
		r.Index = vectorindex.NewHNSWIndex(vectorindex.HNSWConfig{Dimensions: cfg.Vector.Dimensions})
		return nil
	}

	qdrant, err := vectorindex.NewQdrantIndex(cfg.Vector.QdrantAddr, cfg.Vector.Collection)
	if err != nil {
		return err
	}
	r.closers = append(r.closers, qdrant.Close)

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := qdrant.EnsureCollection(ensureCtx, cfg.Vector.Dimensions); err != nil {
		return err
	}
	r.Index = qdrant
	return nil
}

// LLMConfig maps the llm config section to the provider factory config
func LLMConfig(cfg *config.Config) llm.Config {
	return llm.Config{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		EmbeddingProvider: cfg.LLM.EmbeddingProvider,
		EmbeddingModel:    cfg.LLM.EmbeddingModel,
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		EmbeddingAPIKey:   cfg.LLM.EmbeddingAPIKey,
		EmbeddingBaseURL:  cfg.LLM.EmbeddingBaseURL,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}
}

// disabledEmbedder fails every call, which recall reports as unavailable
type disabledEmbedder struct{}

func (disabledEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, llm.ErrProviderDisabled
}

// Services are the use cases built on top of Resources
type Services struct {
	Recommendations *usecase.RecommendationService
	Search          *usecase.MaterialSearchService
	Indexer         *usecase.CatalogIndexer
}

// NewServices wires the matching pipeline
func NewServices(cfg *config.Config, res *Resources, logger zerolog.Logger) *Services {
	m := cfg.Matching
	expander := usecase.NewKeywordExpander()

	recommendations := usecase.NewRecommendationService(
		res.Catalog,
		expander,
		usecase.NewBudgetSelector(logger, m.DebugLogging),
		logger,
	)

	search := usecase.NewMaterialSearchService(
		usecase.NewItemDecomposer(res.Classifier, m.ProviderTimeout, logger),
		usecase.NewSemanticRecall(expander, res.Embedder, res.Index, res.Catalog, m.ProviderTimeout, logger),
		usecase.NewRelevanceFilter(res.Judge, usecase.RelevanceFilterConfig{
			Timeout:    m.ProviderTimeout,
			FailClosed: m.RelevanceFailClosed,
		}, logger),
		usecase.NewPriceComparator(),
		usecase.MaterialSearchConfig{
			DefaultTopK:         m.RecallTopK,
			MaxTopK:             m.MaxTopK,
			SubqueryConcurrency: m.SubqueryConcurrency,
		},
		logger,
	)

	return &Services{
		Recommendations: recommendations,
		Search:          search,
		Indexer:         usecase.NewCatalogIndexer(res.Catalog, res.Embedder, res.Index, m.ProviderTimeout, logger),
	}
}

// WarmIndex loads stored embeddings into the index and, when an embedding
// provider is configured, embeds the items that have none yet.
func WarmIndex(ctx context.Context, cfg *config.Config, svc *Services, logger zerolog.Logger) {
	loaded, err := svc.Indexer.Load(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load embeddings into the vector index")
		return
	}
	logger.Info().Int("loaded", loaded.Indexed).Int("pending", loaded.Skipped).Msg("vector index loaded")

	if !cfg.EmbeddingsEnabled() || loaded.Skipped == 0 {
		return
	}
	if _, err := svc.Indexer.EnsureIndexed(ctx); err != nil {
		logger.Error().Err(err).Msg("background indexing stopped")
	}
}
