package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lazypower/waypoint/internal/config"
)

// Client is the interface for generation providers.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Message is one chat turn. Role is "system", "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request.
type Request struct {
	Messages    []Message
	JSONMode    bool // ask the provider for a JSON-only reply
	Temperature float64
	MaxTokens   int
	RequestID   string // correlation id for logs; assigned by Retrying when empty
}

// Response holds the result of a completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// Prompt builds a system + user message pair.
func Prompt(system, user string) []Message {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	return append(msgs, Message{Role: "user", Content: user})
}

// splitSystem separates system messages from the conversation for providers
// that carry the system prompt out of band.
func splitSystem(msgs []Message) (string, []Message) {
	var system string
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		out = append(out, m)
	}
	return system, out
}

// ErrDisabled is returned by the Disabled client.
var ErrDisabled = errors.New("generation disabled")

// Disabled is a Client that always fails, sending every decision to its fallback.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (*Response, error) {
	return nil, ErrDisabled
}

// NewClient creates a client based on the config provider setting. Network
// providers are wrapped with transient-error retry.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) (Client, error) {
	var c Client
	switch cfg.Provider {
	case "none":
		return Disabled{}, nil
	case "claude-cli":
		model := cfg.Model
		if model == "" {
			model = "haiku"
		}
		return NewClaudeCLI(model), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		c = NewAnthropic(anthropicAPI, cfg.AnthropicKey, model)
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "llama3.2"
		}
		c = NewOllama(url, model)
	case "openai":
		if cfg.OpenAIURL == "" {
			return nil, fmt.Errorf("openai provider requires llm.openai_url")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		c = NewOpenAI(cfg.OpenAIURL, cfg.OpenAIKey, model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	return NewRetrying(c, retry, logger), nil
}
