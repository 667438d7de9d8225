package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/store"
)

// SearchRequest selects and ranks memories for one owner.
type SearchRequest struct {
	OwnerID string           `json:"ownerId"`
	Query   string           `json:"query"`
	Type    model.MemoryType `json:"type,omitempty"`
	Tags    []string         `json:"tags,omitempty"`
	Limit   int              `json:"limit,omitempty"`
}

// Explanation breaks a composite score into its parts.
type Explanation struct {
	KeyBoost   float64  `json:"keyBoost"`
	Vector     float64  `json:"vector"`
	Lexical    float64  `json:"lexical"`
	Impact     float64  `json:"impact"`
	Total      float64  `json:"total"`
	Similarity float64  `json:"similarity"`
	MatchedBy  []string `json:"matchedBy"`
	Reranked   bool     `json:"reranked"`
}

// Result is a ranked memory.
type Result struct {
	Memory      model.MemoryRecord `json:"memory"`
	Explanation Explanation        `json:"explanation"`
}

type candidate struct {
	mem        model.MemoryRecord
	similarity float64
	lexical    bool
	vector     bool
}

// Search ranks memories for req.
//
// Candidates come from a case-insensitive substring match and, when the
// query can be embedded, a cosine ordering over stored vectors; each source
// fetches 3×limit. The composite score is
//
//	keyBoost (key types only) + vectorWeight*max(cos, 0) + lexicalWeight (text contains query) + log1p(impact)
//
// with ties broken by createdAt, newest first. An empty query is a filter
// browse. A failing reranker leaves the score order in place. Query embedding
// and the vector query are bounded by the search timeout; exceeding it, or a
// query that embeds to the zero vector, leaves lexical candidates only.
// Vector-only candidates need a positive similarity.
func (e *Engine) Search(ctx context.Context, req SearchRequest) ([]Result, error) {
	start := time.Now()
	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	fetch := 3 * limit
	query := strings.TrimSpace(req.Query)
	filter := store.MemoryFilter{
		OwnerID: req.OwnerID,
		Type:    req.Type,
		Tags:    req.Tags,
		Query:   query,
		Limit:   fetch,
	}

	var queryVec []float64
	if query != "" && e.Embedder != nil {
		queryVec = e.embedQuery(ctx, query)
	}

	var lexical []model.MemoryRecord
	var vector []store.ScoredMemory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mems, err := e.DB.QueryMemories(gctx, filter)
		if err != nil {
			return err
		}
		lexical = mems
		return nil
	})
	if queryVec != nil {
		g.Go(func() error {
			vctx, cancel := context.WithTimeout(gctx, e.cfg.Timeout)
			defer cancel()
			scored, err := e.DB.QueryByVectorDistance(vctx, queryVec, filter, fetch)
			if err != nil {
				if errors.Is(vctx.Err(), context.DeadlineExceeded) && gctx.Err() == nil {
					e.logger.Warn("search: vector query timed out, lexical only", "timeout", e.cfg.Timeout)
					return nil
				}
				return err
			}
			vector = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	byID := make(map[string]*candidate, len(lexical)+len(vector))
	order := make([]string, 0, len(lexical)+len(vector))
	for _, m := range lexical {
		byID[m.ID] = &candidate{mem: m, lexical: true}
		order = append(order, m.ID)
	}
	for _, s := range vector {
		if c, ok := byID[s.Memory.ID]; ok {
			c.vector = true
			c.similarity = s.Similarity
			continue
		}
		if s.Similarity <= 0 {
			continue
		}
		byID[s.Memory.ID] = &candidate{mem: s.Memory, similarity: s.Similarity, vector: true}
		order = append(order, s.Memory.ID)
	}

	results := make([]Result, 0, len(order))
	lowered := strings.ToLower(query)
	for _, id := range order {
		c := byID[id]
		// Vector-only hits with an embedded record may still contain the query text.
		if !c.lexical && lowered != "" && strings.Contains(strings.ToLower(c.mem.Text), lowered) {
			c.lexical = true
		}
		if queryVec != nil && !c.vector && len(c.mem.Embedding) == len(queryVec) {
			c.similarity = store.CosineSimilarity(queryVec, c.mem.Embedding)
		}
		results = append(results, Result{Memory: c.mem, Explanation: e.explain(c, lowered != "")})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Explanation.Total != b.Explanation.Total {
			return a.Explanation.Total > b.Explanation.Total
		}
		return a.Memory.CreatedAt.After(b.Memory.CreatedAt)
	})

	if len(results) > limit {
		results = e.rerank(ctx, query, results, limit)
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Memory.ID
	}
	e.Usage.Record(ids)
	e.elapsed(start, queryVec != nil)
	return results, nil
}

// embedQuery returns nil when the query cannot be embedded within the search
// timeout or embeds to the zero vector (no vocabulary overlap).
func (e *Engine) embedQuery(ctx context.Context, query string) []float64 {
	ectx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	vec, err := e.Embedder.Embed(ectx, query)
	if err != nil {
		e.logger.Warn("search: query embedding failed, lexical only", "error", err)
		return nil
	}
	for _, v := range vec {
		if v != 0 {
			return vec
		}
	}
	e.logger.Debug("search: query embeds to zero vector, lexical only")
	return nil
}

func (e *Engine) explain(c *candidate, hasQuery bool) Explanation {
	var x Explanation
	if c.mem.Type.IsKey() {
		x.KeyBoost = e.cfg.KeyTypeBoost
	}
	x.Similarity = c.similarity
	x.Vector = e.cfg.VectorWeight * math.Max(c.similarity, 0)
	if c.lexical && hasQuery {
		x.Lexical = e.cfg.LexicalWeight
		x.MatchedBy = append(x.MatchedBy, "lexical")
	} else if c.lexical {
		x.MatchedBy = append(x.MatchedBy, "filter")
	}
	if c.vector {
		x.MatchedBy = append(x.MatchedBy, "vector")
	}
	x.Impact = math.Log1p(math.Max(c.mem.ImpactScore, 0))
	x.Total = x.KeyBoost + x.Vector + x.Lexical + x.Impact
	return x
}

// rerank narrows results to limit, using the reranker's order when it
// succeeds and the score order otherwise.
func (e *Engine) rerank(ctx context.Context, query string, results []Result, limit int) []Result {
	if e.Reranker == nil || !e.cfg.Rerank || query == "" {
		e.Metrics.Rerank("skipped")
		return results[:limit]
	}

	pool := results
	if len(pool) > 3*limit {
		pool = pool[:3*limit]
	}
	texts := make([]string, len(pool))
	for i, r := range pool {
		texts[i] = r.Memory.Text
	}

	order, err := e.Reranker.Rerank(ctx, query, texts, limit)
	if err != nil {
		e.logger.Warn("search: rerank failed, keeping score order", "error", err)
		e.Metrics.Rerank("failed")
		return results[:limit]
	}
	e.Metrics.Rerank("ok")

	out := make([]Result, 0, limit)
	used := make(map[int]bool, limit)
	for _, i := range order {
		r := pool[i]
		r.Explanation.Reranked = true
		out = append(out, r)
		used[i] = true
	}
	// Backfill from the score order when the reranker returned fewer than limit.
	for i := 0; i < len(pool) && len(out) < limit; i++ {
		if !used[i] {
			out = append(out, pool[i])
		}
	}
	return out
}
