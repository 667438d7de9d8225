package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/lazypower/waypoint/internal/decision"
	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/events"
	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/store"
)

const defaultMood = 3

// CheckInInput reports how a task went.
type CheckInInput struct {
	TaskID         string           `json:"taskId"`
	Outcome        model.Outcome    `json:"outcome"`
	ReasonCode     model.ReasonCode `json:"reasonCode,omitempty"`
	ReasonNote     string           `json:"reasonNote,omitempty"`
	ActualDuration int              `json:"actualDuration,omitempty"`
	MoodRating     int              `json:"moodRating,omitempty"`
}

// CheckInResult is the recorded check-in and everything it changed.
type CheckInResult struct {
	CheckIn    *model.CheckIn    `json:"checkIn"`
	Task       *model.Task       `json:"task"`
	Goal       *model.Goal       `json:"goal,omitempty"`
	Adjustment *model.Adjustment `json:"adjustment,omitempty"`
	// FallbackReason is set when the adjustment came from the fallback table.
	FallbackReason string `json:"fallbackReason,omitempty"`
}

func (in *CheckInInput) validate() error {
	if strings.TrimSpace(in.TaskID) == "" {
		return werrors.NewInvalidRequest("taskId is required")
	}
	if !in.Outcome.Valid() {
		return werrors.NewInvalidRequest(fmt.Sprintf("invalid outcome %q", in.Outcome))
	}
	if in.ReasonCode != "" {
		if !in.ReasonCode.Valid() {
			return werrors.NewInvalidRequest(fmt.Sprintf("invalid reasonCode %q", in.ReasonCode))
		}
		if in.Outcome == model.OutcomeCompleted {
			return werrors.NewInvalidRequest("reasonCode is only valid for non-completion outcomes")
		}
	}
	if in.ActualDuration < 0 {
		return werrors.NewInvalidRequest("actualDuration must be >= 0")
	}
	if in.MoodRating == 0 {
		in.MoodRating = defaultMood
	}
	if in.MoodRating < 1 || in.MoodRating > 5 {
		return werrors.NewInvalidRequest(fmt.Sprintf("moodRating must be in [1,5], got %d", in.MoodRating))
	}
	in.ReasonNote = strings.TrimSpace(in.ReasonNote)
	return nil
}

var outcomeStatus = map[model.Outcome]model.TaskStatus{
	model.OutcomeCompleted:    model.TaskCompleted,
	model.OutcomePartial:      model.TaskPostponed,
	model.OutcomeNotCompleted: model.TaskSkipped,
}

// CheckIn records a task outcome, moves the task through its status machine
// and, for a non-completion with a reason, proposes an adjustment. A task
// with a pending adjustment refuses new check-ins until it is resolved.
func (p *Planner) CheckIn(ctx context.Context, in CheckInInput) (*CheckInResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	task, err := p.getTask(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	if task.Status == model.TaskCompleted || task.Status == model.TaskSkipped {
		return nil, werrors.NewInvalidState(fmt.Sprintf("task %s is already %s", task.ID, task.Status))
	}
	open, err := p.DB.PendingAdjustmentForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, werrors.NewInvalidState(fmt.Sprintf("task %s has pending adjustment %s", task.ID, open.ID))
	}

	c := &model.CheckIn{
		TaskID:         task.ID,
		Outcome:        in.Outcome,
		ReasonCode:     in.ReasonCode,
		ReasonNote:     in.ReasonNote,
		ActualDuration: in.ActualDuration,
		MoodRating:     in.MoodRating,
	}
	task.Status = outcomeStatus[in.Outcome]
	res := &CheckInResult{CheckIn: c, Task: task}

	// Generate first; the check-in, task status and adjustment commit together.
	var adj *model.Adjustment
	if in.Outcome != model.OutcomeCompleted && in.ReasonCode != "" {
		prop := p.Decisions.Adjust(ctx, decision.AdjustInput{Task: *task, Reason: in.ReasonCode, Note: in.ReasonNote})
		adj = &model.Adjustment{
			AdjustmentType: prop.Value.AdjustmentType,
			TargetTaskID:   task.ID,
			Rationale:      prop.Value.Rationale,
			Options:        prop.Value.Options,
			Accepted:       model.AdjustmentPending,
			Source:         string(prop.Source),
		}
		res.FallbackReason = prop.FallbackReason
	}

	err = p.DB.WithTx(ctx, func(tx *store.DB) error {
		if err := tx.InsertCheckIn(ctx, c); err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		if in.Outcome == model.OutcomeCompleted && task.GoalID != "" {
			g, err := p.recomputeProgress(ctx, tx, task.GoalID)
			if err != nil {
				return err
			}
			res.Goal = g
		}
		if adj != nil {
			adj.OriginatingCheckInID = c.ID
			if err := tx.InsertAdjustment(ctx, adj); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if adj != nil {
		res.Adjustment = adj
		p.publish(ctx, events.AdjustmentCreated, task.OwnerID, map[string]any{
			"adjustmentId": adj.ID, "taskId": task.ID, "type": adj.AdjustmentType, "source": adj.Source,
		})
	}

	p.logger.Info("check-in recorded", "task", task.ID, "outcome", in.Outcome,
		"reason", in.ReasonCode, "adjustment", res.Adjustment != nil)
	p.publish(ctx, events.CheckInRecorded, task.OwnerID, map[string]any{
		"checkInId": c.ID, "taskId": task.ID, "outcome": in.Outcome, "reasonCode": in.ReasonCode,
	})
	return res, nil
}

// AdjustmentResult is a resolved adjustment and the records it changed.
type AdjustmentResult struct {
	Adjustment *model.Adjustment `json:"adjustment"`
	Task       *model.Task       `json:"task"`
	NewTasks   []model.Task      `json:"newTasks,omitempty"`
	Goal       *model.Goal       `json:"goal,omitempty"`
}

// AcceptAdjustment applies one option of a pending adjustment. An empty
// optionID picks the first option.
func (p *Planner) AcceptAdjustment(ctx context.Context, id, optionID string) (*AdjustmentResult, error) {
	adj, err := p.pendingAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}
	if optionID == "" && len(adj.Options) > 0 {
		optionID = adj.Options[0].ID
	}
	opt, ok := adj.Option(optionID)
	if !ok {
		return nil, werrors.NewInvalidRequest(fmt.Sprintf("adjustment %s has no option %q", id, optionID))
	}
	task, err := p.getTask(ctx, adj.TargetTaskID)
	if err != nil {
		return nil, err
	}

	res := &AdjustmentResult{Adjustment: adj, Task: task}
	err = p.DB.WithTx(ctx, func(tx *store.DB) error {
		if err := p.resolve(ctx, tx, adj, model.AdjustmentAccepted, opt.ID); err != nil {
			return err
		}
		if err := p.apply(ctx, tx, res, opt); err != nil {
			return fmt.Errorf("apply adjustment %s option %s: %w", id, opt.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("adjustment accepted", "adjustment", id, "option", opt.ID, "action", opt.Action, "task", task.ID)
	p.publish(ctx, events.AdjustmentResolved, task.OwnerID, map[string]any{
		"adjustmentId": id, "accepted": true, "optionId": opt.ID, "action": opt.Action,
	})
	return res, nil
}

// RejectAdjustment discards a pending adjustment. The task keeps its status.
func (p *Planner) RejectAdjustment(ctx context.Context, id string) (*AdjustmentResult, error) {
	adj, err := p.pendingAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.resolve(ctx, p.DB, adj, model.AdjustmentRejected, ""); err != nil {
		return nil, err
	}
	task, err := p.DB.GetTask(ctx, adj.TargetTaskID)
	if err != nil {
		return nil, err
	}

	ownerID := ""
	if task != nil {
		ownerID = task.OwnerID
	}
	p.logger.Info("adjustment rejected", "adjustment", id)
	p.publish(ctx, events.AdjustmentResolved, ownerID, map[string]any{"adjustmentId": id, "accepted": false})
	return &AdjustmentResult{Adjustment: adj, Task: task}, nil
}

// PendingAdjustments lists an owner's open adjustments.
func (p *Planner) PendingAdjustments(ctx context.Context, ownerID string) ([]model.Adjustment, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, werrors.NewInvalidRequest("ownerId is required")
	}
	return p.DB.ListPendingAdjustments(ctx, ownerID)
}

func (p *Planner) pendingAdjustment(ctx context.Context, id string) (*model.Adjustment, error) {
	adj, err := p.DB.GetAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}
	if adj == nil {
		return nil, werrors.NewNotFound("adjustment", id)
	}
	if adj.Accepted != model.AdjustmentPending {
		return nil, werrors.NewInvalidState(fmt.Sprintf("adjustment %s is already %s", id, adj.Accepted))
	}
	return adj, nil
}

// resolve flips the stored state; a lost race with another resolver is
// INVALID_STATE.
func (p *Planner) resolve(ctx context.Context, db *store.DB, adj *model.Adjustment, state model.AdjustmentState, optionID string) error {
	ok, err := db.ResolveAdjustment(ctx, adj.ID, state, optionID)
	if err != nil {
		return err
	}
	if !ok {
		return werrors.NewInvalidState(fmt.Sprintf("adjustment %s is no longer pending", adj.ID))
	}
	now := p.now()
	adj.Accepted = state
	adj.ChosenOptionID = optionID
	adj.ResolvedAt = &now
	return nil
}

// apply writes the option's effects through db, which is the accepting
// transaction.
func (p *Planner) apply(ctx context.Context, db *store.DB, res *AdjustmentResult, opt model.AdjustmentOption) error {
	task := res.Task
	switch {
	case model.NeedsTasks(opt.Action):
		start := task.ScheduledDate
		if today := p.today(); start.Before(today) {
			start = today
		}
		for i, s := range opt.Tasks {
			nt := model.Task{
				OwnerID:           task.OwnerID,
				GoalID:            task.GoalID,
				Title:             s.Title,
				EstimatedDuration: s.EstimatedDuration,
				EnergyLevel:       s.EnergyLevel,
				Priority:          task.Priority,
				Status:            model.TaskPending,
				ScheduledDate:     start.AddDate(0, 0, i),
				Milestone:         task.Milestone,
			}
			if err := db.InsertTask(ctx, &nt); err != nil {
				return err
			}
			res.NewTasks = append(res.NewTasks, nt)
		}
		if task.Status != model.TaskCompleted {
			task.Status = model.TaskSkipped
		}

	case opt.Action == string(model.AdjustReschedule) || opt.Action == string(model.AdjustPostpone):
		shift := opt.ShiftDays
		if shift <= 0 {
			shift = 1
		}
		base := task.ScheduledDate
		if today := p.today(); base.Before(today) {
			base = today
		}
		task.ScheduledDate = base.AddDate(0, 0, shift)
		task.Status = model.TaskPending

	case opt.Action == string(model.AdjustCancel):
		task.Status = model.TaskSkipped
		if task.GoalID != "" {
			g, err := db.GetGoal(ctx, task.GoalID)
			if err != nil {
				return err
			}
			if g != nil && !g.Status.Terminal() {
				if err := g.SetStatus(model.GoalCancelled); err != nil {
					return err
				}
				if err := db.UpdateGoal(ctx, g); err != nil {
					return err
				}
				res.Goal = g
			}
		}
	}

	if err := db.UpdateTask(ctx, task); err != nil {
		return err
	}
	if res.Goal == nil && task.GoalID != "" {
		g, err := p.recomputeProgress(ctx, db, task.GoalID)
		if err != nil {
			return err
		}
		res.Goal = g
	}
	return nil
}
