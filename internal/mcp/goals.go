package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/lazypower/waypoint/internal/decision"
	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/planner"
)

// ClarifyTool handles goal_clarify.
type ClarifyTool struct {
	decisions *decision.Engine
}

func NewClarifyTool(d *decision.Engine) *ClarifyTool {
	return &ClarifyTool{decisions: d}
}

func (t *ClarifyTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("goal_clarify",
		mcpgo.WithDescription(
			"Get the questions to ask before creating a goal. Ask the user each question, then pass "+
				"their answers to goal_create keyed by question id.",
		),
		mcpgo.WithString("owner_id",
			mcpgo.Description("User setting the goal; enables memory-aware questions"),
		),
		mcpgo.WithString("prompt",
			mcpgo.Required(),
			mcpgo.Description("The goal in the user's words"),
		),
	)
}

func (t *ClarifyTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	prompt := req.GetString("prompt", "")
	if strings.TrimSpace(prompt) == "" {
		return mcpgo.NewToolResultError("'prompt' is required"), nil
	}
	res := t.decisions.Clarify(ctx, req.GetString("owner_id", ""), prompt)
	return jsonResult(fmt.Sprintf("%d clarifying questions (source: %s).", len(res.Value.Questions), res.Source), res)
}

// CreateGoalTool handles goal_create.
type CreateGoalTool struct {
	planner *planner.Planner
}

func NewCreateGoalTool(p *planner.Planner) *CreateGoalTool {
	return &CreateGoalTool{planner: p}
}

func (t *CreateGoalTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("goal_create",
		mcpgo.WithDescription(
			"Create a SMART goal and its first week of tasks from the user's prompt and clarifying answers.",
		),
		mcpgo.WithString("owner_id",
			mcpgo.Required(),
			mcpgo.Description("User the goal belongs to"),
		),
		mcpgo.WithString("prompt",
			mcpgo.Required(),
			mcpgo.Description("The goal in the user's words"),
		),
		mcpgo.WithObject("answers",
			mcpgo.Description("Answers to goal_clarify questions, keyed by question id"),
		),
	)
}

func (t *CreateGoalTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	plan, err := t.planner.CreateGoal(ctx, planner.CreateGoalInput{
		OwnerID: req.GetString("owner_id", ""),
		Prompt:  req.GetString("prompt", ""),
		Answers: mapArg(req, "answers"),
	})
	if err != nil {
		return errorResult("create goal", err), nil
	}
	summary := fmt.Sprintf("Created goal %q (%s) with %d tasks (source: %s).",
		plan.Goal.Title, plan.Goal.Dimension, len(plan.Tasks), plan.Source)
	if plan.Balance != nil && plan.Balance.Commentary != "" {
		summary += "\n" + plan.Balance.Commentary
	}
	return jsonResult(summary, plan)
}

// BalanceTool handles goal_balance.
type BalanceTool struct {
	planner *planner.Planner
}

func NewBalanceTool(p *planner.Planner) *BalanceTool {
	return &BalanceTool{planner: p}
}

func (t *BalanceTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("goal_balance",
		mcpgo.WithDescription(
			"Show how the user's active and completed goals spread across the eight life dimensions. "+
				"Pass a candidate dimension to see the effect of a new goal.",
		),
		mcpgo.WithString("owner_id",
			mcpgo.Required(),
			mcpgo.Description("User to analyze"),
		),
		mcpgo.WithString("dimension",
			mcpgo.Description("Candidate dimension: health, career, family, finance, growth, social, hobby, self_realization"),
		),
	)
}

func (t *BalanceTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	rep, err := t.planner.Balance(ctx, req.GetString("owner_id", ""), model.Dimension(req.GetString("dimension", "")))
	if err != nil {
		return errorResult("balance", err), nil
	}
	return jsonResult(rep.Commentary, rep)
}
