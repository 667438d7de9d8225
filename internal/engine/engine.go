// Package engine implements memory capture and hybrid retrieval over the store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lazypower/waypoint/internal/config"
	"github.com/lazypower/waypoint/internal/llm"
	"github.com/lazypower/waypoint/internal/metrics"
	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/store"
)

// Classifier derives memory metadata from captured text. source is "ai" or
// "fallback".
type Classifier interface {
	ClassifyMemory(ctx context.Context, text string) (c model.Classification, source string)
}

// Engine owns retrieval and capture for one store.
type Engine struct {
	DB         *store.DB
	Embedder   llm.Embedder
	Reranker   Reranker
	Classifier Classifier
	Usage      *UsageRecorder
	Metrics    *metrics.Metrics

	cfg    config.SearchConfig
	logger *slog.Logger
}

// New creates an Engine. Zero-valued weights in cfg fall back to defaults.
func New(db *store.DB, cfg config.SearchConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	def := config.Default().Search
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.KeyTypeBoost <= 0 {
		cfg.KeyTypeBoost = def.KeyTypeBoost
	}
	if cfg.LexicalWeight <= 0 {
		cfg.LexicalWeight = def.LexicalWeight
	}
	if cfg.VectorWeight <= 0 {
		cfg.VectorWeight = def.VectorWeight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Engine{
		DB:     db,
		Usage:  NewUsageRecorder(db, logger, nil),
		cfg:    cfg,
		logger: logger,
	}
}

// SetEmbedder configures the embedding provider.
func (e *Engine) SetEmbedder(emb llm.Embedder) {
	e.Embedder = emb
}

// SetMetrics attaches collectors to the engine and its usage recorder.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.Metrics = m
	e.Usage.metrics = m
}

// EmbedMemory generates and stores an embedding for a single memory.
func (e *Engine) EmbedMemory(ctx context.Context, m *model.MemoryRecord) error {
	if e.Embedder == nil || m.Text == "" {
		return nil
	}
	vec, err := e.Embedder.Embed(ctx, m.Text)
	if err != nil {
		return fmt.Errorf("embed memory %s: %w", m.ID, err)
	}
	if err := e.DB.SaveEmbedding(ctx, m.ID, vec, e.Embedder.Model()); err != nil {
		return err
	}
	m.Embedding = vec
	return nil
}

// EmbedMissing embeds every memory without a vector from the current model.
// Individual failures are logged and skipped.
func (e *Engine) EmbedMissing(ctx context.Context) (int, error) {
	if e.Embedder == nil {
		return 0, nil
	}
	mems, err := e.DB.ListMemoriesMissingEmbedding(ctx, e.Embedder.Model(), 0)
	if err != nil {
		return 0, fmt.Errorf("list missing: %w", err)
	}
	if len(mems) == 0 {
		return 0, nil
	}

	const batch = 32
	embedded := 0
	for start := 0; start < len(mems); start += batch {
		end := min(start+batch, len(mems))
		texts := make([]string, 0, end-start)
		for _, m := range mems[start:end] {
			texts = append(texts, m.Text)
		}
		vecs, err := e.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			e.logger.Warn("embed missing: batch failed", "from", start, "to", end, "error", err)
			continue
		}
		for i, m := range mems[start:end] {
			if err := e.DB.SaveEmbedding(ctx, m.ID, vecs[i], e.Embedder.Model()); err != nil {
				e.logger.Warn("embed missing: save failed", "memory", m.ID, "error", err)
				continue
			}
			embedded++
		}
	}
	e.logger.Info("embedded memories", "count", embedded, "model", e.Embedder.Model())
	return embedded, nil
}

// Stop drains background usage increments.
func (e *Engine) Stop() {
	e.Usage.Wait()
}

func (e *Engine) elapsed(start time.Time, usedVector bool) {
	e.Metrics.Search(usedVector, time.Since(start))
}
