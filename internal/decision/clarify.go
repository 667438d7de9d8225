package decision

import (
	"context"
	"strings"

	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/llm"
)

// AnswerOption is one selectable answer to a clarifying question.
type AnswerOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is a multiple-choice clarifying question.
type Question struct {
	ID      string         `json:"id"`
	Prompt  string         `json:"prompt"`
	Options []AnswerOption `json:"options"`
}

// Clarification is the value of the Clarify decision.
type Clarification struct {
	Questions []Question `json:"questions"`
}

// Clarify proposes 2-5 questions that sharpen a free-text goal.
func (e *Engine) Clarify(ctx context.Context, ownerID, prompt string) Result[Clarification] {
	memories := e.memoryContext(ctx, ownerID, prompt)
	return attempt(ctx, e, "clarify", llm.ClarifyPrompt(prompt, memories),
		decodeClarification, fallbackClarification)
}

func decodeClarification(raw string) (Clarification, error) {
	c, err := decodeJSON[Clarification](raw)
	if err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c Clarification) validate() error {
	if n := len(c.Questions); n < 2 || n > 5 {
		return werrors.Schema("want 2-5 questions, got %d", n)
	}
	ids := make(map[string]bool, len(c.Questions))
	for i, q := range c.Questions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Prompt) == "" {
			return werrors.Schema("question %d: id and prompt are required", i)
		}
		if ids[q.ID] {
			return werrors.Schema("duplicate question id %q", q.ID)
		}
		ids[q.ID] = true
		if n := len(q.Options); n < 2 || n > 4 {
			return werrors.Schema("question %q: want 2-4 options, got %d", q.ID, n)
		}
		for j, o := range q.Options {
			if strings.TrimSpace(o.Value) == "" || strings.TrimSpace(o.Label) == "" {
				return werrors.Schema("question %q option %d: value and label are required", q.ID, j)
			}
		}
	}
	return nil
}

func fallbackClarification() Clarification {
	return Clarification{Questions: []Question{
		{
			ID:     "timeframe",
			Prompt: "By when do you want to reach this goal?",
			Options: []AnswerOption{
				{Value: "1_month", Label: "Within a month"},
				{Value: "3_months", Label: "Within 3 months"},
				{Value: "6_months", Label: "Within 6 months"},
				{Value: "1_year", Label: "Within a year"},
			},
		},
		{
			ID:     "weekly_hours",
			Prompt: "How many hours a week can you give it?",
			Options: []AnswerOption{
				{Value: "lt_3", Label: "Less than 3 hours"},
				{Value: "3_5", Label: "3 to 5 hours"},
				{Value: "5_10", Label: "5 to 10 hours"},
				{Value: "10_plus", Label: "More than 10 hours"},
			},
		},
	}}
}
