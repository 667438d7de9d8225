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

// CreateGoalInput is a goal prompt plus the clarifying answers.
type CreateGoalInput struct {
	OwnerID string            `json:"ownerId"`
	Prompt  string            `json:"prompt"`
	Answers map[string]string `json:"answers,omitempty"`
}

// GoalPlan is a goal with its tasks. Source and Balance are set on creation.
type GoalPlan struct {
	Goal           *model.Goal             `json:"goal"`
	Tasks          []model.Task            `json:"tasks"`
	Source         decision.Source         `json:"source,omitempty"`
	FallbackReason string                  `json:"fallbackReason,omitempty"`
	Balance        *decision.BalanceReport `json:"balance,omitempty"`
}

// CreateGoal decomposes a prompt into an active goal with pending tasks
// scheduled one per day starting today.
func (p *Planner) CreateGoal(ctx context.Context, in CreateGoalInput) (*GoalPlan, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, werrors.NewInvalidRequest("ownerId is required")
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, werrors.NewInvalidRequest("prompt is required")
	}

	res := p.Decisions.Decompose(ctx, decision.DecomposeInput{OwnerID: in.OwnerID, Prompt: in.Prompt, Answers: in.Answers})
	plan := res.Value

	existing, err := p.DB.ListGoals(ctx, in.OwnerID, model.GoalActive, model.GoalCompleted)
	if err != nil {
		return nil, err
	}
	balance := decision.Balance(existing, plan.Goal.Dimension)

	goal := &model.Goal{
		OwnerID:   in.OwnerID,
		Title:     plan.Goal.Title,
		SMART:     plan.Goal.SMART,
		Dimension: plan.Goal.Dimension,
		Status:    model.GoalActive,
	}
	day := p.today()
	var tasks []model.Task
	err = p.DB.WithTx(ctx, func(tx *store.DB) error {
		if err := tx.InsertGoal(ctx, goal); err != nil {
			return err
		}
		for _, m := range plan.Milestones {
			for _, pt := range m.Tasks {
				t := model.Task{
					OwnerID:           in.OwnerID,
					GoalID:            goal.ID,
					Title:             pt.Title,
					EstimatedDuration: pt.EstimatedDuration,
					EnergyLevel:       pt.EnergyLevel,
					Priority:          pt.Priority,
					Status:            model.TaskPending,
					ScheduledDate:     day.AddDate(0, 0, len(tasks)),
					Milestone:         m.Title,
				}
				if err := tx.InsertTask(ctx, &t); err != nil {
					return fmt.Errorf("create goal %s: %w", goal.ID, err)
				}
				tasks = append(tasks, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("goal created", "goal", goal.ID, "owner", in.OwnerID,
		"dimension", goal.Dimension, "tasks", len(tasks), "source", res.Source)
	p.publish(ctx, events.GoalCreated, in.OwnerID, map[string]any{
		"goalId": goal.ID, "dimension": goal.Dimension, "tasks": len(tasks), "source": res.Source,
	})

	return &GoalPlan{
		Goal:           goal,
		Tasks:          tasks,
		Source:         res.Source,
		FallbackReason: res.FallbackReason,
		Balance:        &balance,
	}, nil
}

// Goal returns a goal and its tasks.
func (p *Planner) Goal(ctx context.Context, id string) (*GoalPlan, error) {
	g, err := p.getGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := p.DB.ListTasksForGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GoalPlan{Goal: g, Tasks: tasks}, nil
}

// ListGoals returns an owner's goals, optionally filtered by status.
func (p *Planner) ListGoals(ctx context.Context, ownerID string, statuses ...model.GoalStatus) ([]model.Goal, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, werrors.NewInvalidRequest("ownerId is required")
	}
	for _, s := range statuses {
		if !s.Valid() {
			return nil, werrors.NewInvalidRequest(fmt.Sprintf("invalid goal status %q", s))
		}
	}
	return p.DB.ListGoals(ctx, ownerID, statuses...)
}

// Balance analyzes an owner's active and completed goals plus an optional
// candidate dimension.
func (p *Planner) Balance(ctx context.Context, ownerID string, candidate model.Dimension) (decision.BalanceReport, error) {
	if strings.TrimSpace(ownerID) == "" {
		return decision.BalanceReport{}, werrors.NewInvalidRequest("ownerId is required")
	}
	if candidate != "" {
		d, ok := model.ParseDimension(string(candidate))
		if !ok {
			return decision.BalanceReport{}, werrors.NewInvalidRequest(fmt.Sprintf("invalid dimension %q", candidate))
		}
		candidate = d
	}
	goals, err := p.DB.ListGoals(ctx, ownerID, model.GoalActive, model.GoalCompleted)
	if err != nil {
		return decision.BalanceReport{}, err
	}
	return decision.Balance(goals, candidate), nil
}

// SetGoalStatus applies a status transition.
func (p *Planner) SetGoalStatus(ctx context.Context, id string, status model.GoalStatus) (*model.Goal, error) {
	if !status.Valid() {
		return nil, werrors.NewInvalidRequest(fmt.Sprintf("invalid goal status %q", status))
	}
	g, err := p.getGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Status == status {
		return g, nil
	}
	if err := g.SetStatus(status); err != nil {
		return nil, werrors.NewInvalidState(err.Error())
	}
	if err := p.DB.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// SetGoalProgress sets progress on a goal that is not completed or cancelled.
func (p *Planner) SetGoalProgress(ctx context.Context, id string, progress int) (*model.Goal, error) {
	if progress < 0 || progress > 100 {
		return nil, werrors.NewInvalidRequest(fmt.Sprintf("progress %d out of range [0,100]", progress))
	}
	g, err := p.getGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Status.Terminal() {
		return nil, werrors.NewInvalidState(fmt.Sprintf("goal is %s", g.Status))
	}
	if err := g.SetProgress(progress); err != nil {
		return nil, werrors.NewInvalidState(err.Error())
	}
	if err := p.DB.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGoal hard-deletes a goal with no tasks. A goal with tasks is
// cancelled instead and cancelled reports true.
func (p *Planner) DeleteGoal(ctx context.Context, id string) (cancelled bool, err error) {
	g, err := p.getGoal(ctx, id)
	if err != nil {
		return false, err
	}
	n, err := p.DB.CountTasksForGoal(ctx, id)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, p.DB.DeleteGoal(ctx, id)
	}
	if g.Status == model.GoalCancelled {
		return true, nil
	}
	if err := g.SetStatus(model.GoalCancelled); err != nil {
		return false, werrors.NewInvalidState(fmt.Sprintf("goal %s has %d tasks and cannot be cancelled: %v", id, n, err))
	}
	if err := p.DB.UpdateGoal(ctx, g); err != nil {
		return false, err
	}
	p.logger.Info("goal soft-cancelled", "goal", id, "tasks", n)
	return true, nil
}

func (p *Planner) getGoal(ctx context.Context, id string) (*model.Goal, error) {
	g, err := p.DB.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, werrors.NewNotFound("goal", id)
	}
	return g, nil
}

// recomputeProgress sets a non-terminal goal's progress to the share of its
// tasks that are completed.
func (p *Planner) recomputeProgress(ctx context.Context, db *store.DB, goalID string) (*model.Goal, error) {
	g, err := db.GetGoal(ctx, goalID)
	if err != nil || g == nil || g.Status.Terminal() {
		return g, err
	}
	tasks, err := db.ListTasksForGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	done, total := 0, 0
	for _, t := range tasks {
		// Tasks replaced by a split or cancelled count neither way.
		if t.Status == model.TaskSkipped {
			continue
		}
		total++
		if t.Status == model.TaskCompleted {
			done++
		}
	}
	if total == 0 {
		return g, nil
	}
	if err := g.SetProgress(done * 100 / total); err != nil {
		return nil, err
	}
	if err := db.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}
