package decision

import (
	"context"
	"fmt"
	"strings"

	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/llm"
	"github.com/lazypower/waypoint/internal/model"
)

// AdjustInput is the task that was not completed and why.
type AdjustInput struct {
	Task   model.Task       `json:"task"`
	Reason model.ReasonCode `json:"reasonCode"`
	Note   string           `json:"reasonNote,omitempty"`
}

// Proposal is the value of the Adjust decision.
type Proposal struct {
	AdjustmentType model.AdjustmentType     `json:"adjustmentType"`
	Rationale      string                   `json:"rationale"`
	Options        []model.AdjustmentOption `json:"options"`
}

const (
	maxOptions   = 3
	maxShiftDays = 30
)

// Adjust proposes how to change a task after a non-completion check-in.
func (e *Engine) Adjust(ctx context.Context, in AdjustInput) Result[Proposal] {
	return attempt(ctx, e, "adjust", llm.AdjustPrompt(in.Task, in.Reason, in.Note),
		func(raw string) (Proposal, error) { return decodeProposal(raw, in.Task) },
		func() Proposal { return fallbackProposal(in.Task, in.Reason) })
}

func decodeProposal(raw string, task model.Task) (Proposal, error) {
	p, err := decodeJSON[Proposal](raw)
	if err != nil {
		return p, err
	}
	err = p.validate(task)
	return p, err
}

// validate checks the proposal and fills defaults the schema leaves open:
// option ids, shift days, and replacement task energy/priority.
func (p *Proposal) validate(task model.Task) error {
	if !p.AdjustmentType.Valid() {
		return werrors.Schema("invalid adjustmentType %q", p.AdjustmentType)
	}
	p.Rationale = strings.TrimSpace(p.Rationale)
	if p.Rationale == "" {
		return werrors.Schema("rationale is required")
	}
	if len(p.Options) == 0 {
		return werrors.Schema("at least one option is required")
	}
	if len(p.Options) > maxOptions {
		p.Options = p.Options[:maxOptions]
	}

	seen := make(map[string]bool, len(p.Options))
	for i := range p.Options {
		o := &p.Options[i]
		o.ID = strings.TrimSpace(o.ID)
		if o.ID == "" {
			o.ID = string(rune('a' + i))
		}
		if seen[o.ID] {
			return werrors.Schema("duplicate option id %q", o.ID)
		}
		seen[o.ID] = true

		if !model.ValidAction(o.Action) {
			return werrors.Schema("option %q: invalid action %q", o.ID, o.Action)
		}
		if strings.TrimSpace(o.Label) == "" {
			return werrors.Schema("option %q: label is required", o.ID)
		}

		switch {
		case model.NeedsTasks(o.Action):
			if len(o.Tasks) == 0 {
				return werrors.Schema("option %q: %s needs at least one replacement task", o.ID, o.Action)
			}
			for j := range o.Tasks {
				s := &o.Tasks[j]
				if s.EnergyLevel == "" {
					s.EnergyLevel = task.EnergyLevel
				}
				t := model.Task{Title: strings.TrimSpace(s.Title), EstimatedDuration: s.EstimatedDuration,
					EnergyLevel: s.EnergyLevel, Priority: 1}
				if err := t.Validate(); err != nil {
					return werrors.Schema("option %q task %d: %v", o.ID, j, err)
				}
				s.Title = t.Title
			}
			o.ShiftDays = 0
		case o.Action == string(model.AdjustReschedule) || o.Action == string(model.AdjustPostpone):
			if o.ShiftDays <= 0 {
				o.ShiftDays = 1
			}
			if o.ShiftDays > maxShiftDays {
				return werrors.Schema("option %q: shiftDays %d exceeds %d", o.ID, o.ShiftDays, maxShiftDays)
			}
			o.Tasks = nil
		default:
			o.ShiftDays = 0
			o.Tasks = nil
		}
	}
	return nil
}

// fallbackProposal answers from a fixed table keyed by reason code.
func fallbackProposal(task model.Task, reason model.ReasonCode) Proposal {
	switch reason {
	case model.ReasonTimeInsufficient:
		half := max(task.EstimatedDuration/2, 1)
		rest := max(task.EstimatedDuration-half, 1)
		return Proposal{
			AdjustmentType: model.AdjustSplit,
			Rationale:      "The task did not fit in the time you had. Shrink it into smaller chunks you can finish in one sitting.",
			Options: []model.AdjustmentOption{
				{
					ID:     "a",
					Label:  "Split into two shorter sessions",
					Action: string(model.AdjustSplit),
					Tasks: []model.TaskSuggestion{
						{Title: fmt.Sprintf("%s (part 1)", task.Title), EstimatedDuration: half, EnergyLevel: task.EnergyLevel},
						{Title: fmt.Sprintf("%s (part 2)", task.Title), EstimatedDuration: rest, EnergyLevel: task.EnergyLevel},
					},
				},
				{ID: "b", Label: "Try again tomorrow", Action: string(model.AdjustPostpone), ShiftDays: 1},
			},
		}
	case model.ReasonEnergyLow:
		return Proposal{
			AdjustmentType: model.AdjustReschedule,
			Rationale:      "Your energy was low. Move the task to a slot where you usually have more energy.",
			Options: []model.AdjustmentOption{
				{ID: "a", Label: "Reschedule to tomorrow", Action: string(model.AdjustReschedule), ShiftDays: 1},
				{ID: "b", Label: "Reschedule to later this week", Action: string(model.AdjustReschedule), ShiftDays: 3},
			},
		}
	case model.ReasonExternalInterrupt:
		return Proposal{
			AdjustmentType: model.AdjustPostpone,
			Rationale:      "Something outside your control got in the way. Push the task to the next day and leave some buffer.",
			Options: []model.AdjustmentOption{
				{ID: "a", Label: "Postpone to tomorrow", Action: string(model.AdjustPostpone), ShiftDays: 1},
				{ID: "b", Label: "Postpone by two days", Action: string(model.AdjustPostpone), ShiftDays: 2},
			},
		}
	case model.ReasonPriorityChanged:
		return Proposal{
			AdjustmentType: model.AdjustReschedule,
			Rationale:      "Your priorities shifted. Re-evaluate where this task belongs before picking it up again.",
			Options: []model.AdjustmentOption{
				{ID: "a", Label: "Reschedule to next week", Action: string(model.AdjustReschedule), ShiftDays: 7},
				{ID: "b", Label: "Drop this task", Action: string(model.AdjustCancel)},
			},
		}
	default:
		return Proposal{
			AdjustmentType: model.AdjustPostpone,
			Rationale:      "Push the task to the next day and try again.",
			Options: []model.AdjustmentOption{
				{ID: "a", Label: "Postpone to tomorrow", Action: string(model.AdjustPostpone), ShiftDays: 1},
			},
		}
	}
}
