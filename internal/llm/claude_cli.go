package llm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ClaudeCLI calls the Claude CLI (`claude -p`) as a subprocess.
type ClaudeCLI struct {
	model  string
	binary string
}

// NewClaudeCLI creates a new Claude CLI client.
func NewClaudeCLI(model string) *ClaudeCLI {
	return &ClaudeCLI{model: model, binary: "claude"}
}

// Complete flattens the conversation into one prompt on stdin.
// Cancellation comes from ctx; the decision timeout bounds it.
func (c *ClaudeCLI) Complete(ctx context.Context, req Request) (*Response, error) {
	cmd := exec.CommandContext(ctx, c.binary, "-p", "--model", c.model, "--max-turns", "1")
	cmd.Stdin = strings.NewReader(flatten(req))
	cmd.Env = filterEnv(os.Environ())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("claude cli: %w (stderr: %s)", err, stderr.String())
	}

	return &Response{
		Content:  strings.TrimSpace(stdout.String()),
		Provider: "claude-cli",
	}, nil
}

func flatten(req Request) string {
	var b strings.Builder
	system, msgs := splitSystem(req.Messages)
	if req.JSONMode {
		if system != "" {
			system += "\n\n"
		}
		system += jsonOnlyInstruction
	}
	if system != "" {
		b.WriteString(system)
		b.WriteString("\n\n")
	}
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if m.Role == "assistant" {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

// filterEnv removes CLAUDE_* variables so the subprocess does not inherit the parent session.
func filterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, "CLAUDE_") {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
