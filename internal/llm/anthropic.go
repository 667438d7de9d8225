package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// jsonOnlyInstruction is appended to the system prompt for providers without a native JSON mode.
const jsonOnlyInstruction = "Respond with a single JSON value and nothing else. No prose, no code fences."

// Anthropic calls the Anthropic Messages API directly.
type Anthropic struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewAnthropic creates a new Anthropic API client.
func NewAnthropic(endpoint, apiKey, model string) *Anthropic {
	return &Anthropic{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete sends the conversation to the Messages API.
func (a *Anthropic) Complete(ctx context.Context, req Request) (*Response, error) {
	system, msgs := splitSystem(req.Messages)
	if req.JSONMode {
		if system != "" {
			system += "\n\n"
		}
		system += jsonOnlyInstruction
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	reqBody := map[string]any{
		"model":       a.model,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
		"messages":    msgs,
	}
	if system != "" {
		reqBody["system"] = system
	}

	respBody, err := postJSON(ctx, a.client, "anthropic", a.endpoint, map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}, reqBody)
	if err != nil {
		return nil, err
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, NewFatalError(fmt.Errorf("decode response: %w", err))
	}

	text := ""
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}

	return &Response{
		Content:    text,
		Provider:   "anthropic",
		TokensUsed: result.Usage.InputTokens + result.Usage.OutputTokens,
	}, nil
}
