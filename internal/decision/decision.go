// Package decision implements the generation-with-fallback decisions: every
// call first asks the generative tier for schema-checked JSON and, on any
// failure, answers from deterministic rules instead. Decisions never return
// an error.
package decision

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lazypower/waypoint/internal/config"
	"github.com/lazypower/waypoint/internal/engine"
	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/llm"
	"github.com/lazypower/waypoint/internal/metrics"
)

// Source tags where a decision value came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Fallback reasons.
const (
	ReasonTransport = "transport"
	ReasonParse     = "parse"
	ReasonSchema    = "schema"
	ReasonTimeout   = "timeout"
)

// Result is the envelope every decision returns.
type Result[T any] struct {
	Source         Source `json:"source"`
	Value          T      `json:"value"`
	FallbackReason string `json:"fallbackReason,omitempty"`
}

// MemorySearcher supplies memory context for prompts.
type MemorySearcher interface {
	Search(ctx context.Context, req engine.SearchRequest) ([]engine.Result, error)
}

// Engine runs decisions against one generation client.
type Engine struct {
	LLM      llm.Client
	Memories MemorySearcher
	Metrics  *metrics.Metrics

	timeout     time.Duration
	memoryLimit int
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// New creates a decision engine. A nil client sends every decision to its
// fallback.
func New(client llm.Client, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	timeout := cfg.Decision.Timeout
	if timeout <= 0 {
		timeout = config.Default().Decision.Timeout
	}
	limit := cfg.Decision.MemoryContextLimit
	if limit <= 0 {
		limit = 5
	}
	return &Engine{
		LLM:         client,
		timeout:     timeout,
		memoryLimit: limit,
		temperature: cfg.LLM.Temperature,
		maxTokens:   cfg.LLM.MaxTokens,
		logger:      logger,
	}
}

// attempt runs one decision: generate, decode, validate, else fallback.
// The fallback runs even when ctx is already done.
func attempt[T any](ctx context.Context, e *Engine, name string, msgs []llm.Message,
	decode func(raw string) (T, error), fallback func() T) Result[T] {
	start := time.Now()

	val, err := generate(ctx, e, msgs, decode)
	if err == nil {
		e.Metrics.Decision(name, string(SourceAI), "", time.Since(start))
		e.logger.Debug("decision answered by generation", "decision", name, "elapsed", time.Since(start))
		return Result[T]{Source: SourceAI, Value: val}
	}

	reason := reasonOf(err)
	e.logger.Warn("decision fell back", "decision", name, "reason", reason, "error", err)
	res := Result[T]{Source: SourceFallback, Value: fallback(), FallbackReason: reason}
	e.Metrics.Decision(name, string(SourceFallback), reason, time.Since(start))
	return res
}

func generate[T any](ctx context.Context, e *Engine, msgs []llm.Message, decode func(string) (T, error)) (T, error) {
	var zero T
	if e.LLM == nil {
		return zero, werrors.Transport(llm.ErrDisabled)
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.LLM.Complete(cctx, llm.Request{
		Messages:    msgs,
		JSONMode:    true,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		if cerr := cctx.Err(); cerr != nil {
			return zero, werrors.Transport(fmt.Errorf("%w: %v", cerr, err))
		}
		return zero, werrors.Transport(err)
	}
	if resp == nil {
		return zero, werrors.Transport(fmt.Errorf("empty response"))
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return zero, werrors.Parse(fmt.Errorf("no JSON object in %d bytes of output", len(resp.Content)))
	}
	return decode(raw)
}

// decodeJSON unmarshals raw into T, reporting failures as parse errors.
func decodeJSON[T any](raw string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, werrors.Parse(err)
	}
	return v, nil
}

func reasonOf(err error) string {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return ReasonTimeout
	}
	switch werrors.KindOf(err) {
	case werrors.KindParse:
		return ReasonParse
	case werrors.KindSchema:
		return ReasonSchema
	}
	return ReasonTransport
}

// memoryContext returns up to memoryLimit memory texts relevant to query.
// The lookup is bounded by the decision timeout; failure or timeout degrades
// to no context.
func (e *Engine) memoryContext(ctx context.Context, ownerID, query string) []string {
	if e.Memories == nil || ownerID == "" || strings.TrimSpace(query) == "" {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type lookup struct {
		results []engine.Result
		err     error
	}
	done := make(chan lookup, 1)
	go func() {
		results, err := e.Memories.Search(cctx, engine.SearchRequest{OwnerID: ownerID, Query: query, Limit: e.memoryLimit})
		done <- lookup{results, err}
	}()

	var res lookup
	select {
	case res = <-done:
	case <-cctx.Done():
		res.err = cctx.Err()
	}
	if res.err != nil {
		e.logger.Warn("decision: memory context unavailable", "owner", ownerID, "error", res.err)
		return nil
	}
	texts := make([]string, 0, len(res.results))
	for _, r := range res.results {
		texts = append(texts, fmt.Sprintf("(%s) %s", r.Memory.Type, r.Memory.Text))
	}
	return texts
}
