package decision

import (
	"context"
	"regexp"
	"strings"

	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/llm"
	"github.com/lazypower/waypoint/internal/model"
)

// wireClassification accepts free-text system tags; unknown ones are dropped.
type wireClassification struct {
	Type        model.MemoryType `json:"type"`
	SystemTags  []string         `json:"systemTags"`
	Confidence  *float64         `json:"confidence"`
	ImpactScore *float64         `json:"impactScore"`
}

// Classify derives the memory type, system tags and scores for a note.
func (e *Engine) Classify(ctx context.Context, text string) Result[model.Classification] {
	return attempt(ctx, e, "classify", llm.ClassifyPrompt(text),
		decodeClassification, func() model.Classification { return fallbackClassification(text) })
}

// ClassifyMemory adapts Classify to the capture path.
func (e *Engine) ClassifyMemory(ctx context.Context, text string) (model.Classification, string) {
	r := e.Classify(ctx, text)
	return r.Value, string(r.Source)
}

func decodeClassification(raw string) (model.Classification, error) {
	w, err := decodeJSON[wireClassification](raw)
	if err != nil {
		return model.Classification{}, err
	}
	w.Type = model.MemoryType(strings.ToLower(strings.TrimSpace(string(w.Type))))
	if !w.Type.Valid() {
		return model.Classification{}, werrors.Schema("invalid memory type %q", w.Type)
	}
	if w.Confidence == nil || *w.Confidence < 0 || *w.Confidence > 1 {
		return model.Classification{}, werrors.Schema("confidence must be in [0,1]")
	}
	if w.ImpactScore == nil || *w.ImpactScore < 0 {
		return model.Classification{}, werrors.Schema("impactScore must be >= 0")
	}
	return model.Classification{
		Type:        w.Type,
		SystemTags:  model.ParseSystemTags(w.SystemTags),
		Confidence:  *w.Confidence,
		ImpactScore: min(*w.ImpactScore, model.MaxImpactScore),
	}, nil
}

var (
	dateRe = regexp.MustCompile(`(?i)\b(` +
		`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(/\d{2,4})?|` +
		`(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(st|nd|rd|th)?|` +
		`(monday|tuesday|wednesday|thursday|friday|saturday|sunday)|` +
		`birthday|anniversary|deadline|tomorrow|next week)\b`)
	traitRe = regexp.MustCompile(`(?i)\b(i am|i'm|i prefer|i always|i never|i like|i hate|i love)\b`)
	eventRe = regexp.MustCompile(`(?i)\b(got married|graduated|moved|started|quit|was born|born|divorced|promoted|retired)\b`)
	habitRe = regexp.MustCompile(`(?i)\b(every|always|usually|daily|weekly)\b`)
	limitRe = regexp.MustCompile(`(?i)\b(can't|cannot|never|allergic|only|must not|no time)\b`)
)

// fallbackClassification applies keyword rules. Date phrases win over traits,
// traits over events.
func fallbackClassification(text string) model.Classification {
	c := model.Classification{Type: model.TypeImportantInfo, Confidence: 0.5, ImpactScore: 1}
	switch {
	case dateRe.MatchString(text):
		c.Type = model.TypeDateReminder
	case traitRe.MatchString(text):
		c.Type = model.TypePersonalTrait
		c.SystemTags = append(c.SystemTags, model.TagPreference)
	case eventRe.MatchString(text):
		c.Type = model.TypeKeyEvent
		c.SystemTags = append(c.SystemTags, model.TagMilestone)
	}

	var extra []string
	for _, t := range c.SystemTags {
		extra = append(extra, string(t))
	}
	if habitRe.MatchString(text) {
		extra = append(extra, string(model.TagHabit))
	}
	if limitRe.MatchString(text) {
		extra = append(extra, string(model.TagConstraint))
	}
	c.SystemTags = model.ParseSystemTags(extra)
	return c
}
