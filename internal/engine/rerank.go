package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/waypoint/internal/llm"
)

// Reranker reorders candidate texts by relevance to query. It returns indexes
// into texts, most relevant first, at most limit long.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string, limit int) ([]int, error)
}

// LLMReranker asks the generation tier for an index order.
type LLMReranker struct {
	Client  llm.Client
	Timeout time.Duration
}

// NewLLMReranker wraps client; timeout <= 0 means 5s.
func NewLLMReranker(client llm.Client, timeout time.Duration) *LLMReranker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LLMReranker{Client: client, Timeout: timeout}
}

func (r *LLMReranker) Rerank(ctx context.Context, query string, texts []string, limit int) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	resp, err := r.Client.Complete(ctx, llm.Request{
		Messages:    llm.RerankPrompt(query, texts, limit),
		JSONMode:    true,
		Temperature: 0,
		MaxTokens:   256,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	order, err := decodeOrder(resp.Content)
	if err != nil {
		return nil, err
	}
	return validOrder(order, len(texts), limit)
}

// decodeOrder accepts {"order": [...]} or a bare index array.
func decodeOrder(content string) ([]int, error) {
	if raw := llm.ExtractJSON(content); raw != "" {
		var out struct {
			Order []int `json:"order"`
		}
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("rerank: decode: %w", err)
		}
		return out.Order, nil
	}
	raw := llm.ExtractJSONArray(content)
	if raw == "" {
		return nil, fmt.Errorf("rerank: no JSON in response")
	}
	var order []int
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("rerank: decode: %w", err)
	}
	return order, nil
}

// validOrder drops duplicates and rejects out-of-range indexes.
func validOrder(order []int, n, limit int) ([]int, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("rerank: empty order")
	}
	seen := make(map[int]bool, len(order))
	out := make([]int, 0, limit)
	for _, i := range order {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("rerank: index %d out of range [0,%d)", i, n)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
