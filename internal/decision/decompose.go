package decision

import (
	"context"
	"fmt"
	"strings"

	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/llm"
	"github.com/lazypower/waypoint/internal/model"
)

// DecomposeInput is a raw goal plus the answers to its clarifying questions.
type DecomposeInput struct {
	OwnerID string            `json:"ownerId"`
	Prompt  string            `json:"prompt"`
	Answers map[string]string `json:"answers,omitempty"`
}

// PlannedGoal is the SMART goal part of a plan.
type PlannedGoal struct {
	Title     string          `json:"title"`
	Dimension model.Dimension `json:"dimension"`
	model.SMART
}

// PlannedTask is a task proposed by a plan.
type PlannedTask struct {
	Title             string            `json:"title"`
	EstimatedDuration int               `json:"estimatedDuration"`
	EnergyLevel       model.EnergyLevel `json:"energyLevel"`
	Priority          int               `json:"priority"`
}

// Milestone groups ordered tasks.
type Milestone struct {
	Title string        `json:"title"`
	Tasks []PlannedTask `json:"tasks"`
}

// Plan is the value of the Decompose decision.
type Plan struct {
	Goal       PlannedGoal `json:"goal"`
	Milestones []Milestone `json:"milestones"`
}

// TaskCount returns the number of tasks across milestones.
func (p Plan) TaskCount() int {
	n := 0
	for _, m := range p.Milestones {
		n += len(m.Tasks)
	}
	return n
}

// wirePlan mirrors the prompt's JSON shape; dimension arrives as free text.
type wirePlan struct {
	Goal struct {
		Title      string `json:"title"`
		Specific   string `json:"specific"`
		Measurable string `json:"measurable"`
		Achievable string `json:"achievable"`
		Relevant   string `json:"relevant"`
		TimeBound  string `json:"timeBound"`
		Dimension  string `json:"dimension"`
	} `json:"goal"`
	Milestones []Milestone `json:"milestones"`
}

// Decompose turns a goal prompt into a SMART goal with milestones and tasks.
func (e *Engine) Decompose(ctx context.Context, in DecomposeInput) Result[Plan] {
	memories := e.memoryContext(ctx, in.OwnerID, in.Prompt)
	return attempt(ctx, e, "decompose", llm.DecomposePrompt(in.Prompt, in.Answers, memories),
		decodePlan, func() Plan { return fallbackPlan(in.Prompt) })
}

func decodePlan(raw string) (Plan, error) {
	w, err := decodeJSON[wirePlan](raw)
	if err != nil {
		return Plan{}, err
	}

	g := w.Goal
	dim, ok := model.ParseDimension(g.Dimension)
	if !ok {
		return Plan{}, werrors.Schema("invalid dimension %q", g.Dimension)
	}
	p := Plan{
		Goal: PlannedGoal{
			Title:     strings.TrimSpace(g.Title),
			Dimension: dim,
			SMART: model.SMART{
				Specific:   strings.TrimSpace(g.Specific),
				Measurable: strings.TrimSpace(g.Measurable),
				Achievable: strings.TrimSpace(g.Achievable),
				Relevant:   strings.TrimSpace(g.Relevant),
				TimeBound:  strings.TrimSpace(g.TimeBound),
			},
		},
		Milestones: w.Milestones,
	}
	err = p.validate()
	return p, err
}

func (p *Plan) validate() error {
	g := p.Goal
	if g.Title == "" {
		return werrors.Schema("goal title is required")
	}
	for name, v := range map[string]string{
		"specific": g.Specific, "measurable": g.Measurable, "achievable": g.Achievable,
		"relevant": g.Relevant, "timeBound": g.TimeBound,
	} {
		if v == "" {
			return werrors.Schema("goal.%s is required", name)
		}
	}
	if len(p.Milestones) == 0 {
		return werrors.Schema("plan has no milestones")
	}
	for i := range p.Milestones {
		m := &p.Milestones[i]
		m.Title = strings.TrimSpace(m.Title)
		if m.Title == "" {
			m.Title = fmt.Sprintf("Milestone %d", i+1)
		}
		if len(m.Tasks) == 0 {
			return werrors.Schema("milestone %q has no tasks", m.Title)
		}
		for j := range m.Tasks {
			t := &m.Tasks[j]
			t.Title = strings.TrimSpace(t.Title)
			if t.Priority == 0 {
				t.Priority = 3
			}
			task := model.Task{Title: t.Title, EstimatedDuration: t.EstimatedDuration,
				EnergyLevel: t.EnergyLevel, Priority: t.Priority}
			if err := task.Validate(); err != nil {
				return werrors.Schema("milestone %q task %d: %v", m.Title, j, err)
			}
		}
	}
	return nil
}

const maxTitleChars = 120

// fallbackPlan is the fixed three-step plan used when generation fails.
func fallbackPlan(prompt string) Plan {
	title := strings.Join(strings.Fields(prompt), " ")
	if title == "" {
		title = "New goal"
	}
	if r := []rune(title); len(r) > maxTitleChars {
		title = strings.TrimSpace(string(r[:maxTitleChars]))
	}
	return Plan{
		Goal: PlannedGoal{
			Title:     title,
			Dimension: model.DimGrowth,
			SMART: model.SMART{
				Specific:   title,
				Measurable: "Complete every task in the plan",
				Achievable: "Start with small steps and review progress weekly",
				Relevant:   "You chose this goal yourself",
				TimeBound:  "Review in 4 weeks",
			},
		},
		Milestones: []Milestone{{
			Title: "Get started",
			Tasks: []PlannedTask{
				{Title: "Break the goal into concrete steps", EstimatedDuration: 30, EnergyLevel: model.EnergyMedium, Priority: 4},
				{Title: "Gather the resources you need", EstimatedDuration: 45, EnergyLevel: model.EnergyLow, Priority: 3},
				{Title: "Take the first action", EstimatedDuration: 30, EnergyLevel: model.EnergyMedium, Priority: 5},
			},
		}},
	}
}
