package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/planner"
)

// CheckInTool handles task_checkin.
type CheckInTool struct {
	planner *planner.Planner
}

func NewCheckInTool(p *planner.Planner) *CheckInTool {
	return &CheckInTool{planner: p}
}

func (t *CheckInTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("task_checkin",
		mcpgo.WithDescription(
			"Record how a task went. A partial or missed task with a reason returns a proposed "+
				"adjustment; show its options to the user and resolve it with adjustment_resolve.",
		),
		mcpgo.WithString("task_id",
			mcpgo.Required(),
			mcpgo.Description("Task being reported on"),
		),
		mcpgo.WithString("outcome",
			mcpgo.Required(),
			mcpgo.Enum(string(model.OutcomeCompleted), string(model.OutcomePartial), string(model.OutcomeNotCompleted)),
		),
		mcpgo.WithString("reason_code",
			mcpgo.Description("Why it was not completed"),
			mcpgo.Enum(string(model.ReasonTimeInsufficient), string(model.ReasonEnergyLow),
				string(model.ReasonExternalInterrupt), string(model.ReasonPriorityChanged),
				string(model.ReasonForgot), string(model.ReasonOther)),
		),
		mcpgo.WithString("reason_note",
			mcpgo.Description("Free-text detail"),
		),
		mcpgo.WithNumber("actual_duration",
			mcpgo.Description("Minutes actually spent"),
		),
		mcpgo.WithNumber("mood_rating",
			mcpgo.Description("1-5 (default: 3)"),
		),
	)
}

func (t *CheckInTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	res, err := t.planner.CheckIn(ctx, planner.CheckInInput{
		TaskID:         req.GetString("task_id", ""),
		Outcome:        model.Outcome(req.GetString("outcome", "")),
		ReasonCode:     model.ReasonCode(req.GetString("reason_code", "")),
		ReasonNote:     req.GetString("reason_note", ""),
		ActualDuration: intArg(req, "actual_duration", 0),
		MoodRating:     intArg(req, "mood_rating", 0),
	})
	if err != nil {
		return errorResult("check-in", err), nil
	}

	summary := fmt.Sprintf("Check-in recorded; task is now %s.", res.Task.Status)
	if a := res.Adjustment; a != nil {
		var opts []string
		for _, o := range a.Options {
			opts = append(opts, fmt.Sprintf("%s) %s", o.ID, o.Label))
		}
		summary += fmt.Sprintf("\nProposed %s (adjustment %s): %s\nOptions: %s",
			a.AdjustmentType, a.ID, a.Rationale, strings.Join(opts, "; "))
	}
	return jsonResult(summary, res)
}

// ResolveTool handles adjustment_resolve.
type ResolveTool struct {
	planner *planner.Planner
}

func NewResolveTool(p *planner.Planner) *ResolveTool {
	return &ResolveTool{planner: p}
}

func (t *ResolveTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("adjustment_resolve",
		mcpgo.WithDescription("Accept one option of a pending adjustment, or reject it."),
		mcpgo.WithString("adjustment_id",
			mcpgo.Required(),
		),
		mcpgo.WithString("decision",
			mcpgo.Required(),
			mcpgo.Enum("accept", "reject"),
		),
		mcpgo.WithString("option_id",
			mcpgo.Description("Option to apply when accepting (default: the first option)"),
		),
	)
}

func (t *ResolveTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id := req.GetString("adjustment_id", "")
	if id == "" {
		return mcpgo.NewToolResultError("'adjustment_id' is required"), nil
	}

	var (
		res *planner.AdjustmentResult
		err error
	)
	switch req.GetString("decision", "") {
	case "accept":
		res, err = t.planner.AcceptAdjustment(ctx, id, req.GetString("option_id", ""))
	case "reject":
		res, err = t.planner.RejectAdjustment(ctx, id)
	default:
		return mcpgo.NewToolResultError("'decision' must be accept or reject"), nil
	}
	if err != nil {
		return errorResult("resolve adjustment", err), nil
	}

	summary := fmt.Sprintf("Adjustment %s %s.", id, res.Adjustment.Accepted)
	if len(res.NewTasks) > 0 {
		summary += fmt.Sprintf(" %d replacement tasks scheduled.", len(res.NewTasks))
	}
	return jsonResult(summary, res)
}
