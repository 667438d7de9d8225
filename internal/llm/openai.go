package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAI calls any OpenAI-compatible /chat/completions endpoint
// (OpenAI, vLLM, LM Studio, Ollama's /v1 shim).
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI creates a client for an OpenAI-compatible base URL ending in /v1.
func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	return &OpenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete posts to /chat/completions. JSONMode requests response_format json_object.
func (o *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	reqBody := map[string]any{
		"model":       o.model,
		"messages":    req.Messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		reqBody["max_tokens"] = req.MaxTokens
	}
	if req.JSONMode {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}

	var headers map[string]string
	if o.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + o.apiKey}
	}
	respBody, err := postJSON(ctx, o.client, "openai", o.baseURL+"/chat/completions", headers, reqBody)
	if err != nil {
		return nil, err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, NewFatalError(fmt.Errorf("decode response: %w", err))
	}
	if len(result.Choices) == 0 {
		return nil, NewFatalError(fmt.Errorf("openai returned no choices"))
	}

	return &Response{
		Content:    result.Choices[0].Message.Content,
		Provider:   "openai",
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}
