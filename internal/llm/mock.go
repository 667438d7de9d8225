package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// MockClient is a thread-safe test double for Client. Responses are returned
// in sequence; the last one repeats. Err takes precedence over Responses.
type MockClient struct {
	mu        sync.Mutex
	Responses []*Response
	Err       error
	Calls     []Request
	// Block, when set, makes Complete wait for ctx cancellation.
	Block bool
}

// NewMockClient returns a mock that answers every call with the given contents.
func NewMockClient(contents ...string) *MockClient {
	m := &MockClient{}
	for _, c := range contents {
		m.Responses = append(m.Responses, &Response{Content: c, Provider: "mock"})
	}
	return m
}

func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	n := len(m.Calls)
	block, err := m.Block, m.Err
	var resp *Response
	if len(m.Responses) > 0 {
		idx := n - 1
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		resp = m.Responses[idx]
	}
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &Response{Provider: "mock"}, nil
	}
	return resp, nil
}

// CallCount returns the number of Complete calls.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockEmbedder returns deterministic vectors. Vectors maps exact texts to
// fixed vectors; other texts hash into a sparse unit vector.
type MockEmbedder struct {
	mu      sync.Mutex
	Vectors map[string][]float64
	Dims    int
	Err     error
	Calls   int
}

func (m *MockEmbedder) Model() string { return "mock" }

func (m *MockEmbedder) Dimensions() int {
	if m.Dims == 0 {
		return 8
	}
	return m.Dims
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	vec := make([]float64, m.Dimensions())
	h := fnv.New32a()
	fmt.Fprint(h, text)
	vec[h.Sum32()%uint32(len(vec))] = 1
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
