package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lazypower/waypoint/internal/config"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
	Dimensions() int
}

// OllamaEmbedder uses Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	url    string
	model  string
	dims   atomic.Int64
	client *http.Client
}

// NewOllamaEmbedder creates an embedder using Ollama's API.
// dims is a hint; it is replaced by the observed length after each call.
// Safe for concurrent use.
func NewOllamaEmbedder(url, model string, dims int) *OllamaEmbedder {
	o := &OllamaEmbedder{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	o.dims.Store(int64(dims))
	return o
}

func (o *OllamaEmbedder) Model() string   { return "ollama:" + o.model }
func (o *OllamaEmbedder) Dimensions() int { return int(o.dims.Load()) }

func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request; /api/embed accepts an input array.
func (o *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	respBody, err := postJSON(ctx, o.client, "ollama", o.url+"/api/embed", nil, map[string]any{
		"model": o.model,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	o.dims.Store(int64(len(result.Embeddings[0])))
	return result.Embeddings, nil
}

// ProbeOllama checks that Ollama is reachable and the embedding model answers.
func ProbeOllama(url, model string) bool {
	client := &http.Client{Timeout: 3 * time.Second}
	reqBody, _ := json.Marshal(map[string]any{
		"model": model,
		"input": "test",
	})
	resp, err := client.Post(strings.TrimRight(url, "/")+"/api/embed", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// OpenAIEmbedder uses any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	dims    atomic.Int64
	client  *http.Client
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dims == 0 {
		dims = 1536
	}
	e := &OpenAIEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	e.dims.Store(int64(dims))
	return e
}

func (e *OpenAIEmbedder) Model() string   { return "openai:" + e.model }
func (e *OpenAIEmbedder) Dimensions() int { return int(e.dims.Load()) }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var headers map[string]string
	if e.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + e.apiKey}
	}
	respBody, err := postJSON(ctx, e.client, "openai", e.baseURL+"/embeddings", headers, map[string]any{
		"model": e.model,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(result.Data), len(texts))
	}
	out := make([][]float64, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	e.dims.Store(int64(len(out[0])))
	return out, nil
}

// NewEmbedder builds a remote embedder from config. It returns (nil, nil) for
// the local "tfidf" provider, which the engine builds from the store.
func NewEmbedder(cfg config.LLMConfig) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "tfidf", "":
		return nil, nil
	case "ollama":
		model := cfg.EmbeddingModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaEmbedder(cfg.OllamaURL, model, 768), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAIURL, cfg.OpenAIKey, cfg.EmbeddingModel, 0), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.EmbeddingProvider)
	}
}
