package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/kb"
	"github.com/m-mizutani/burrow/pkg/memory"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	mcpsvc "github.com/m-mizutani/burrow/pkg/service/mcp"
	"github.com/m-mizutani/burrow/pkg/tool"
	"github.com/m-mizutani/burrow/pkg/tool/faq"
	"github.com/m-mizutani/burrow/pkg/usecase/assistant"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values shared across commands
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Adapters
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string

	// Repository
	firestoreProject  string
	firestoreDatabase string

	// Knowledge base
	kbPath    string
	chunkSize int64

	// Tools
	topK         int64
	detailedTopK int64
	mcpConfig    string

	// Memory
	memoryMode string
	maxTurns   int64
	ttlDays    int64

	// Agent loop
	iterationCap int64
	timeout      time.Duration
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("BURROW_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("BURROW_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Gemini model for generation",
			Sources:     cli.EnvVars("BURROW_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini model for embeddings",
			Sources:     cli.EnvVars("BURROW_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.StringFlag{
			Name:        "kb",
			Aliases:     []string{"k"},
			Usage:       "Path to the knowledge base file (.csv or .yaml)",
			Sources:     cli.EnvVars("BURROW_KB_PATH"),
			Destination: &cfg.kbPath,
			Required:    true,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Maximum characters per indexed chunk",
			Value:       index.DefaultChunkSize,
			Sources:     cli.EnvVars("BURROW_CHUNK_SIZE"),
			Destination: &cfg.chunkSize,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Result count for basic FAQ search",
			Value:       faq.DefaultTopK,
			Sources:     cli.EnvVars("BURROW_TOP_K"),
			Destination: &cfg.topK,
		},
		&cli.IntFlag{
			Name:        "detailed-top-k",
			Usage:       "Result count for detailed FAQ search",
			Value:       faq.DefaultDetailedTopK,
			Sources:     cli.EnvVars("BURROW_DETAILED_TOP_K"),
			Destination: &cfg.detailedTopK,
		},
		&cli.StringFlag{
			Name:        "mcp-config",
			Usage:       "Path to MCP server configuration YAML",
			Sources:     cli.EnvVars("BURROW_MCP_CONFIG"),
			Destination: &cfg.mcpConfig,
		},
		&cli.IntFlag{
			Name:        "iteration-cap",
			Usage:       "Maximum model turns per invocation",
			Value:       assistant.DefaultIterationCap,
			Sources:     cli.EnvVars("BURROW_ITERATION_CAP"),
			Destination: &cfg.iterationCap,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Deadline for a single invocation",
			Value:       assistant.DefaultTimeout,
			Sources:     cli.EnvVars("BURROW_TIMEOUT"),
			Destination: &cfg.timeout,
		},
	}
}

// memoryFlags returns flags for the session memory configuration
func memoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "memory-mode",
			Usage:       "Session memory mode (none, short_term, tiered)",
			Value:       string(model.MemoryModeNone),
			Sources:     cli.EnvVars("BURROW_MEMORY_MODE"),
			Destination: &cfg.memoryMode,
		},
		&cli.IntFlag{
			Name:        "max-turns",
			Usage:       "Short-term turns kept before eviction",
			Value:       memory.DefaultMaxTurns,
			Sources:     cli.EnvVars("BURROW_MAX_TURNS"),
			Destination: &cfg.maxTurns,
		},
		&cli.IntFlag{
			Name:        "memory-ttl-days",
			Usage:       "Days a long-term memory record stays valid",
			Value:       int64(memory.DefaultTTL / (24 * time.Hour)),
			Sources:     cli.EnvVars("BURROW_MEMORY_TTL_DAYS"),
			Destination: &cfg.ttlDays,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for Firestore (in-process store when empty)",
			Sources:     cli.EnvVars("FIRESTORE_PROJECT_ID"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
	}
}

// setupLogger builds the logger from the flag values and attaches it to the context
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, logging.ParseFormat(cfg.logFormat), nil)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.generativeModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.generativeModel))
	}
	if cfg.embeddingModel != "" {
		opts = append(opts, adapter.WithEmbeddingModel(cfg.embeddingModel))
	}

	client, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini adapter")
	}
	return client, nil
}

// newRepository creates the turn and record repository. Firestore when a
// project is configured, the in-process store otherwise.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.firestoreProject == "" {
		return repository.NewMemory(), nil
	}

	repo, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newIndex loads the knowledge base and builds the vector index
func (cfg *config) newIndex(ctx context.Context, gemini adapter.Gemini) (*index.Index, error) {
	entries, err := kb.Load(cfg.kbPath)
	if err != nil {
		return nil, err
	}

	idx, err := index.BuildWith(ctx, gemini, entries,
		[]index.BuildOption{index.WithChunkSize(int(cfg.chunkSize))})
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("knowledge base indexed",
		"path", cfg.kbPath, "entries", idx.Size())
	return idx, nil
}

// newMemory creates the session memory store
func (cfg *config) newMemory(ctx context.Context, gemini adapter.Gemini) (*memory.Store, error) {
	mode := model.MemoryMode(cfg.memoryMode)
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	return memory.New(repo, gemini,
		memory.WithMode(mode),
		memory.WithMaxTurns(int(cfg.maxTurns)),
		memory.WithTTL(time.Duration(cfg.ttlDays)*24*time.Hour),
	), nil
}

// newUseCase assembles the full assistant: adapter, index, tools and memory.
func (cfg *config) newUseCase(ctx context.Context) (*assistant.UseCase, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := cfg.newIndex(ctx, gemini)
	if err != nil {
		return nil, err
	}

	tools := []tool.Tool{
		faq.NewSearch(idx, int(cfg.topK)),
		faq.NewSearchDetailed(idx, int(cfg.detailedTopK)),
		faq.NewReformulate(gemini),
	}

	if provider, err := mcpsvc.LoadAndConnect(ctx, cfg.mcpConfig); err != nil {
		return nil, err
	} else if provider != nil {
		tools = append(tools, provider)
	}

	mem, err := cfg.newMemory(ctx, gemini)
	if err != nil {
		return nil, err
	}

	return assistant.New(gemini, tool.New(tools...), mem,
		assistant.WithIterationCap(int(cfg.iterationCap)),
		assistant.WithTimeout(cfg.timeout),
	), nil
}
