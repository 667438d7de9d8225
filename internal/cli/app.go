package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lazypower/waypoint/internal/config"
	"github.com/lazypower/waypoint/internal/decision"
	"github.com/lazypower/waypoint/internal/engine"
	"github.com/lazypower/waypoint/internal/events"
	"github.com/lazypower/waypoint/internal/llm"
	"github.com/lazypower/waypoint/internal/metrics"
	"github.com/lazypower/waypoint/internal/planner"
	"github.com/lazypower/waypoint/internal/store"
)

// app is the wired service graph shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *store.DB
	engine    *engine.Engine
	decisions *decision.Engine
	planner   *planner.Planner
	metrics   *metrics.Metrics
	events    events.Publisher
}

// loadConfig reads the config file, applies env and flag overrides, and
// validates the result.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger writes to stderr so stdout stays clean for command output and
// the MCP stdio transport.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, hopts))
}

// openApp wires config, store, generation client, retrieval engine,
// decisions and planner.
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log)

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	m := metrics.New()

	var client llm.Client
	if c, err := llm.NewClient(cfg.LLM, logger); err != nil {
		logger.Warn("generation disabled; decisions use fallbacks", "error", err)
	} else if _, off := c.(llm.Disabled); !off {
		client = c
	}

	eng := engine.New(db, cfg.Search, logger)
	eng.SetMetrics(m)
	eng.SetEmbedder(pickEmbedder(ctx, cfg, db, logger))
	if client != nil && cfg.Search.Rerank {
		eng.Reranker = engine.NewLLMReranker(client, cfg.Decision.RerankTimeout)
	}

	dec := decision.New(client, cfg, logger)
	dec.Memories = eng
	dec.Metrics = m
	eng.Classifier = dec

	pub := events.NewPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
	p := planner.New(db, dec, pub, logger)
	p.Metrics = m

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		engine:    eng,
		decisions: dec,
		planner:   p,
		metrics:   m,
		events:    pub,
	}, nil
}

// pickEmbedder uses the configured remote embedder when it answers and the
// TF-IDF embedder fitted over stored memories otherwise.
func pickEmbedder(ctx context.Context, cfg *config.Config, db *store.DB, logger *slog.Logger) llm.Embedder {
	remote, err := llm.NewEmbedder(cfg.LLM)
	if err != nil {
		logger.Warn("embedder config invalid; using tfidf", "error", err)
	}
	if remote != nil {
		if cfg.LLM.EmbeddingProvider != "ollama" || llm.ProbeOllama(cfg.LLM.OllamaURL, cfg.LLM.EmbeddingModel) {
			logger.Debug("embedder selected", "model", remote.Model())
			return remote
		}
		logger.Info("ollama embedder unreachable; using tfidf", "url", cfg.LLM.OllamaURL)
	}

	tctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	tfidf, err := engine.NewTFIDFEmbedder(tctx, db, 512)
	if err != nil {
		logger.Warn("tfidf embedder init failed; vector search disabled", "error", err)
		return nil
	}
	logger.Debug("embedder selected", "model", tfidf.Model())
	return tfidf
}

func (a *app) Close() {
	a.engine.Stop()
	if err := a.events.Close(); err != nil {
		a.logger.Warn("close event publisher", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}
