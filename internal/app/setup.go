package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	coreapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"golang.org/x/time/rate"

	"github.com/quillhq/quill/db"
	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/chat"
	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/log"
	"github.com/quillhq/quill/internal/observability"
	"github.com/quillhq/quill/internal/plan"
	"github.com/quillhq/quill/internal/postgres"
	"github.com/quillhq/quill/internal/ratelimit"
	"github.com/quillhq/quill/internal/retrieval"
)

// Setup builds the application from a validated config. On error,
// everything already initialized is torn down before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first so Genkit's TracerProvider is ready before Init.
	if cfg.Datadog.Enabled() {
		a.otelShutdown = observability.Setup(ctx, observability.Config{
			AgentHost:   cfg.Datadog.AgentHost,
			Environment: cfg.Datadog.Environment,
			ServiceName: cfg.Datadog.ServiceName,
		}, logger)
	}

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := postgres.Connect(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	a.Pool = pool

	store, err := postgres.NewStore(pool, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	// One pacer shared by planner and completion calls: both count
	// against the same provider quota.
	pacer := rate.NewLimiter(10, 30)

	planner := plan.NewPlanner(g, cfg.PlannerModelName(), pacer, logger)
	documents := retrieval.NewFilterEngine(store, logger)
	vectors := retrieval.NewVectorRetriever(embedder, store, retrieval.EmbeddingDimensions, logger)
	if cfg.Provider == config.ProviderGemini || cfg.Provider == config.ProviderGoogleAI {
		vectors.PinProviderDimensions()
	}
	headings := retrieval.NewHeadingRetriever(store, logger)

	a.Chat = chat.NewOrchestrator(chat.Config{
		Genkit:    g,
		Model:     cfg.FullModelName(),
		Planner:   planner,
		Documents: documents,
		Vectors:   vectors,
		Headings:  headings,
		Limiter:   pacer,
		Timezone:  cfg.DefaultTimezone,
		Logger:    logger,
	})

	limiter := ratelimit.New(store, cfg.RateLimitWindow, cfg.RateLimitMax, logger)
	a.Server = api.NewServer(api.Config{
		Addr:        cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
	}, a.Chat, pool, limiter, logger)

	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider
// plugin. Ollama needs explicit model registration; the hosted providers
// discover models by name.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(plugin))
		plugin.DefineModel(g, ollama.ModelDefinition{Name: cfg.ModelName, Type: "chat"}, nil)
		if cfg.PlannerModel != "" && cfg.PlannerModel != cfg.ModelName {
			plugin.DefineModel(g, ollama.ModelDefinition{Name: cfg.PlannerModel, Type: "chat"}, nil)
		}
		plugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName, "host", cfg.OllamaHost)
		return g, nil

	case config.ProviderOpenAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName)
		return g, nil

	case config.ProviderGemini, config.ProviderGoogleAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName)
		return g, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

// provideEmbedder looks up the embedder registered by the provider
// plugin. Each provider keys embedders differently.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, coreapi.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}
