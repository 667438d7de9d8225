package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/model"
)

// CaptureInput is a memory as submitted by a caller. Type, Confidence and
// ImpactScore are derived by the classifier when absent.
type CaptureInput struct {
	OwnerID           string            `json:"ownerId"`
	Text              string            `json:"text"`
	Type              model.MemoryType  `json:"type,omitempty"`
	SystemTags        []string          `json:"systemTags,omitempty"`
	UserTags          []string          `json:"userTags,omitempty"`
	StructuredExtract map[string]string `json:"structuredExtract,omitempty"`
	ReminderDate      *time.Time        `json:"reminderDate,omitempty"`
	Confidence        *float64          `json:"confidence,omitempty"`
	ImpactScore       *float64          `json:"impactScore,omitempty"`
}

// CaptureResult reports the stored memory and where its metadata came from.
type CaptureResult struct {
	Memory       *model.MemoryRecord `json:"memory"`
	ClassifiedBy string              `json:"classifiedBy"` // caller, ai, fallback
	Embedded     bool                `json:"embedded"`
}

func (in CaptureInput) validate() error {
	if strings.TrimSpace(in.OwnerID) == "" {
		return werrors.NewInvalidRequest("ownerId is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return werrors.NewInvalidRequest("text is required")
	}
	if in.Type != "" && !in.Type.Valid() {
		return werrors.NewInvalidRequest(fmt.Sprintf("invalid memory type %q", in.Type))
	}
	for _, t := range in.SystemTags {
		if !model.SystemTag(strings.ToLower(strings.TrimSpace(t))).Valid() {
			return werrors.NewInvalidRequest(fmt.Sprintf("invalid system tag %q", t))
		}
	}
	if in.Confidence != nil && (*in.Confidence < 0 || *in.Confidence > 1) {
		return werrors.NewInvalidRequest("confidence must be within [0,1]")
	}
	if in.ImpactScore != nil && *in.ImpactScore < 0 {
		return werrors.NewInvalidRequest("impactScore must be >= 0")
	}
	return nil
}

// Capture validates and stores a memory. Missing metadata is classified;
// the embedding is best-effort.
func (e *Engine) Capture(ctx context.Context, in CaptureInput) (*CaptureResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	if len(text) > maxTextChars {
		e.logger.Warn("capture: truncating text", "from", len(text), "to", maxTextChars)
		text = truncateClean(text, maxTextChars)
	}

	m := &model.MemoryRecord{
		OwnerID:           in.OwnerID,
		Type:              in.Type,
		Text:              text,
		StructuredExtract: in.StructuredExtract,
		SystemTags:        model.ParseSystemTags(in.SystemTags),
		UserTags:          sanitizeTags(in.UserTags),
		ReminderDate:      in.ReminderDate,
	}
	res := &CaptureResult{Memory: m, ClassifiedBy: "caller"}

	needsClass := in.Type == "" || in.Confidence == nil || in.ImpactScore == nil
	var class model.Classification
	if needsClass {
		class, res.ClassifiedBy = e.classify(ctx, text)
	}
	if m.Type == "" {
		m.Type = class.Type
	}
	if len(m.SystemTags) == 0 {
		m.SystemTags = class.SystemTags
	}
	if in.Confidence != nil {
		m.Confidence = *in.Confidence
	} else {
		m.Confidence = class.Confidence
	}
	if in.ImpactScore != nil {
		m.ImpactScore = *in.ImpactScore
		if m.ImpactScore > model.MaxImpactScore {
			e.logger.Debug("capture: clamping impact", "from", m.ImpactScore, "to", model.MaxImpactScore)
			m.ImpactScore = model.MaxImpactScore
		}
	} else {
		m.ImpactScore = class.ImpactScore
	}

	if err := e.DB.InsertMemory(ctx, m); err != nil {
		return nil, werrors.NewInternal(err)
	}
	if m.SystemTags == nil {
		m.SystemTags = []model.SystemTag{}
	}

	if err := e.EmbedMemory(ctx, m); err != nil {
		e.logger.Warn("capture: embedding skipped", "memory", m.ID, "error", err)
	} else {
		res.Embedded = m.HasEmbedding()
	}
	return res, nil
}

func (e *Engine) classify(ctx context.Context, text string) (model.Classification, string) {
	if e.Classifier == nil {
		return model.Classification{Type: model.TypeImportantInfo, Confidence: 0.5, ImpactScore: 1}, "fallback"
	}
	return e.Classifier.ClassifyMemory(ctx, text)
}

// UpdateTags replaces a memory's user tags, and its system tags when system
// is non-nil.
func (e *Engine) UpdateTags(ctx context.Context, id string, system, user []string) (*model.MemoryRecord, error) {
	var sys []model.SystemTag
	if system != nil {
		for _, t := range system {
			tag := model.SystemTag(strings.ToLower(strings.TrimSpace(t)))
			if !tag.Valid() {
				return nil, werrors.NewInvalidRequest(fmt.Sprintf("invalid system tag %q", t))
			}
		}
		// Non-nil even when empty: an empty list clears system tags.
		sys = append([]model.SystemTag{}, model.ParseSystemTags(system)...)
	}
	ok, err := e.DB.UpdateMemoryTags(ctx, id, sys, sanitizeTags(user))
	if err != nil {
		return nil, werrors.NewInternal(err)
	}
	if !ok {
		return nil, werrors.NewNotFound("memory", id)
	}
	m, err := e.DB.GetMemory(ctx, id)
	if err != nil {
		return nil, werrors.NewInternal(err)
	}
	return m, nil
}
