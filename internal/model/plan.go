package model

import (
	"fmt"
	"time"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalDraft     GoalStatus = "draft"
	GoalActive    GoalStatus = "active"
	GoalPaused    GoalStatus = "paused"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

func (s GoalStatus) Valid() bool {
	_, ok := goalTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed.
func (s GoalStatus) Terminal() bool {
	return s == GoalCompleted || s == GoalCancelled
}

var goalTransitions = map[GoalStatus][]GoalStatus{
	GoalDraft:     {GoalActive, GoalPaused, GoalCompleted, GoalCancelled},
	GoalActive:    {GoalPaused, GoalCompleted, GoalCancelled},
	GoalPaused:    {GoalActive, GoalCompleted, GoalCancelled},
	GoalCompleted: nil,
	GoalCancelled: nil,
}

// CanTransition reports whether from → to is permitted. Same-status is always allowed.
func CanTransition(from, to GoalStatus) bool {
	if from == to {
		return true
	}
	for _, next := range goalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SMART holds the five optional SMART goal descriptors.
type SMART struct {
	Specific   string `json:"specific"`
	Measurable string `json:"measurable"`
	Achievable string `json:"achievable"`
	Relevant   string `json:"relevant"`
	TimeBound  string `json:"timeBound"`
}

// Goal is a user goal on the life wheel.
type Goal struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Title     string     `json:"title"`
	SMART                `json:"smart"`
	Dimension Dimension  `json:"dimension"`
	Status    GoalStatus `json:"status"`
	Progress  int        `json:"progress"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SetStatus applies a status transition. Completing a goal forces progress to 100;
// no other transition touches progress. Re-setting the current status is a no-op.
func (g *Goal) SetStatus(to GoalStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown goal status %q", to)
	}
	if !CanTransition(g.Status, to) {
		return fmt.Errorf("cannot move goal from %s to %s", g.Status, to)
	}
	g.Status = to
	if to == GoalCompleted {
		g.Progress = 100
	}
	return nil
}

// SetProgress sets progress in [0,100]. A completed goal stays at 100.
func (g *Goal) SetProgress(p int) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("progress %d out of range [0,100]", p)
	}
	if g.Status == GoalCompleted {
		return fmt.Errorf("goal is completed; progress is fixed at 100")
	}
	g.Progress = p
	return nil
}

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

func (e EnergyLevel) Valid() bool {
	return e == EnergyLow || e == EnergyMedium || e == EnergyHigh
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskSkipped    TaskStatus = "skipped"
	TaskPostponed  TaskStatus = "postponed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskSkipped, TaskPostponed:
		return true
	}
	return false
}

// Task is a unit of scheduled work, optionally attached to a goal.
type Task struct {
	ID                string      `json:"id"`
	OwnerID           string      `json:"ownerId"`
	GoalID            string      `json:"goalId,omitempty"`
	Title             string      `json:"title"`
	EstimatedDuration int         `json:"estimatedDuration"`
	EnergyLevel       EnergyLevel `json:"energyLevel"`
	Priority          int         `json:"priority"`
	Status            TaskStatus  `json:"status"`
	ScheduledDate     time.Time   `json:"scheduledDate"`
	Milestone         string      `json:"milestone,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// Validate checks the scalar invariants of a task.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task title is required")
	}
	if t.EstimatedDuration <= 0 {
		return fmt.Errorf("estimatedDuration must be > 0, got %d", t.EstimatedDuration)
	}
	if !t.EnergyLevel.Valid() {
		return fmt.Errorf("invalid energyLevel %q", t.EnergyLevel)
	}
	if t.Priority < 1 || t.Priority > 5 {
		return fmt.Errorf("priority must be in [1,5], got %d", t.Priority)
	}
	return nil
}

type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeNotCompleted Outcome = "not_completed"
	OutcomePartial      Outcome = "partial"
)

func (o Outcome) Valid() bool {
	return o == OutcomeCompleted || o == OutcomeNotCompleted || o == OutcomePartial
}

// ReasonCode explains why a task was not completed.
type ReasonCode string

const (
	ReasonTimeInsufficient  ReasonCode = "time_insufficient"
	ReasonEnergyLow         ReasonCode = "energy_low"
	ReasonExternalInterrupt ReasonCode = "external_interrupt"
	ReasonPriorityChanged   ReasonCode = "priority_changed"
	ReasonForgot            ReasonCode = "forgot"
	ReasonOther             ReasonCode = "other"
)

var ReasonCodes = []ReasonCode{
	ReasonTimeInsufficient, ReasonEnergyLow, ReasonExternalInterrupt,
	ReasonPriorityChanged, ReasonForgot, ReasonOther,
}

func (r ReasonCode) Valid() bool {
	for _, known := range ReasonCodes {
		if r == known {
			return true
		}
	}
	return false
}

// CheckIn records the outcome of a task. Immutable once created.
type CheckIn struct {
	ID             string     `json:"id"`
	TaskID         string     `json:"taskId"`
	Outcome        Outcome    `json:"outcome"`
	ReasonCode     ReasonCode `json:"reasonCode,omitempty"`
	ReasonNote     string     `json:"reasonNote,omitempty"`
	ActualDuration int        `json:"actualDuration"`
	MoodRating     int        `json:"moodRating"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type AdjustmentType string

const (
	AdjustSplit      AdjustmentType = "split"
	AdjustReschedule AdjustmentType = "reschedule"
	AdjustPostpone   AdjustmentType = "postpone"
	AdjustCancel     AdjustmentType = "cancel"
)

func (a AdjustmentType) Valid() bool {
	switch a {
	case AdjustSplit, AdjustReschedule, AdjustPostpone, AdjustCancel:
		return true
	}
	return false
}

// ActionReduceScope is an option action that is not itself an adjustment type.
const ActionReduceScope = "reduce_scope"

// ValidAction reports whether a is an adjustment type or reduce_scope.
func ValidAction(a string) bool {
	return AdjustmentType(a).Valid() || a == ActionReduceScope
}

// NeedsTasks reports whether an option action must carry replacement tasks.
func NeedsTasks(action string) bool {
	return action == string(AdjustSplit) || action == ActionReduceScope
}

// TaskSuggestion is a replacement task proposed by an adjustment option.
type TaskSuggestion struct {
	Title             string      `json:"title"`
	EstimatedDuration int         `json:"estimatedDuration"`
	EnergyLevel       EnergyLevel `json:"energyLevel"`
}

// AdjustmentOption is one choice the user may accept.
type AdjustmentOption struct {
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	Action    string           `json:"action"`
	Tasks     []TaskSuggestion `json:"tasks,omitempty"`
	ShiftDays int              `json:"shiftDays,omitempty"`
}

type AdjustmentState string

const (
	AdjustmentPending  AdjustmentState = "pending"
	AdjustmentAccepted AdjustmentState = "accepted"
	AdjustmentRejected AdjustmentState = "rejected"
)

// Adjustment is a proposed change to a task after a failed check-in.
type Adjustment struct {
	ID                   string             `json:"id"`
	OriginatingCheckInID string             `json:"originatingCheckInId,omitempty"`
	AdjustmentType       AdjustmentType     `json:"adjustmentType"`
	TargetTaskID         string             `json:"targetTaskId"`
	Rationale            string             `json:"rationale"`
	Options              []AdjustmentOption `json:"options"`
	Accepted             AdjustmentState    `json:"accepted"`
	ChosenOptionID       string             `json:"chosenOptionId,omitempty"`
	Source               string             `json:"source"`
	CreatedAt            time.Time          `json:"createdAt"`
	ResolvedAt           *time.Time         `json:"resolvedAt,omitempty"`
}

// Option returns the option with the given id.
func (a *Adjustment) Option(id string) (AdjustmentOption, bool) {
	for _, o := range a.Options {
		if o.ID == id {
			return o, true
		}
	}
	return AdjustmentOption{}, false
}
