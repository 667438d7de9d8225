package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lazypower/waypoint/internal/model"
)

// ScoredMemory is a memory paired with its cosine similarity to a query vector.
type ScoredMemory struct {
	Memory     model.MemoryRecord
	Similarity float64
}

// encodeEmbedding converts a []float64 to a binary BLOB (8 bytes per float64).
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeEmbedding converts a binary BLOB back to []float64.
func decodeEmbedding(buf []byte) []float64 {
	n := len(buf) / 8
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}

// SaveEmbedding stores or replaces the embedding for a memory.
func (db *DB) SaveEmbedding(ctx context.Context, memoryID string, embedding []float64, modelName string) error {
	now := time.Now().UnixMilli()
	blob := encodeEmbedding(embedding)

	_, err := db.q.ExecContext(ctx, `
		INSERT INTO memory_vectors (memory_id, embedding, model, dimensions, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET embedding = ?, model = ?, dimensions = ?, created_at = ?
	`, memoryID, blob, modelName, len(embedding), now,
		blob, modelName, len(embedding), now)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// QueryByVectorDistance returns up to limit memories matching the owner, type
// and tag filters that carry an embedding, ordered by cosine similarity to vec
// (highest first, newest first on ties). The text filter is ignored.
func (db *DB) QueryByVectorDistance(ctx context.Context, vec []float64, f MemoryFilter, limit int) ([]ScoredMemory, error) {
	where, args := f.where(false)
	mems, err := db.queryMemories(ctx, `
		SELECT `+memoryColumns+`
		FROM memories m JOIN memory_vectors v ON v.memory_id = m.id
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	scored := make([]ScoredMemory, 0, len(mems))
	for _, m := range mems {
		if len(m.Embedding) != len(vec) {
			continue // different model dimensions
		}
		scored = append(scored, ScoredMemory{Memory: m, Similarity: CosineSimilarity(vec, m.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Memory.CreatedAt.After(scored[j].Memory.CreatedAt)
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
