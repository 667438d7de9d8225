package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/model"
)

// CreateTaskInput is a manually entered task.
type CreateTaskInput struct {
	OwnerID           string            `json:"ownerId"`
	GoalID            string            `json:"goalId,omitempty"`
	Title             string            `json:"title"`
	EstimatedDuration int               `json:"estimatedDuration"`
	EnergyLevel       model.EnergyLevel `json:"energyLevel,omitempty"`
	Priority          int               `json:"priority,omitempty"`
	ScheduledDate     time.Time         `json:"scheduledDate,omitzero"`
	Milestone         string            `json:"milestone,omitempty"`
}

// CreateTask adds a pending task. Energy defaults to medium, priority to 3,
// the schedule to today.
func (p *Planner) CreateTask(ctx context.Context, in CreateTaskInput) (*model.Task, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, werrors.NewInvalidRequest("ownerId is required")
	}
	t := &model.Task{
		OwnerID:           in.OwnerID,
		GoalID:            in.GoalID,
		Title:             strings.TrimSpace(in.Title),
		EstimatedDuration: in.EstimatedDuration,
		EnergyLevel:       in.EnergyLevel,
		Priority:          in.Priority,
		Status:            model.TaskPending,
		ScheduledDate:     in.ScheduledDate,
		Milestone:         strings.TrimSpace(in.Milestone),
	}
	if t.EnergyLevel == "" {
		t.EnergyLevel = model.EnergyMedium
	}
	if t.Priority == 0 {
		t.Priority = 3
	}
	if t.ScheduledDate.IsZero() {
		t.ScheduledDate = p.today()
	}
	if err := t.Validate(); err != nil {
		return nil, werrors.NewInvalidRequest(err.Error())
	}

	if t.GoalID != "" {
		g, err := p.getGoal(ctx, t.GoalID)
		if err != nil {
			return nil, err
		}
		if g.OwnerID != t.OwnerID {
			return nil, werrors.NewNotFound("goal", t.GoalID)
		}
		if g.Status.Terminal() {
			return nil, werrors.NewInvalidState(fmt.Sprintf("goal %s is %s", g.ID, g.Status))
		}
	}

	if err := p.DB.InsertTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// StartTask moves a pending or postponed task to in_progress.
func (p *Planner) StartTask(ctx context.Context, id string) (*model.Task, error) {
	t, err := p.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	switch t.Status {
	case model.TaskInProgress:
		return t, nil
	case model.TaskPending, model.TaskPostponed:
	default:
		return nil, werrors.NewInvalidState(fmt.Sprintf("task %s is %s", id, t.Status))
	}
	t.Status = model.TaskInProgress
	if err := p.DB.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Tasks returns an owner's tasks scheduled in [from, to).
func (p *Planner) Tasks(ctx context.Context, ownerID string, from, to time.Time) ([]model.Task, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, werrors.NewInvalidRequest("ownerId is required")
	}
	return p.DB.ListTasks(ctx, ownerID, from, to)
}

func (p *Planner) getTask(ctx context.Context, id string) (*model.Task, error) {
	t, err := p.DB.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, werrors.NewNotFound("task", id)
	}
	return t, nil
}
