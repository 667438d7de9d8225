package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/lazypower/waypoint/internal/engine"
	"github.com/lazypower/waypoint/internal/model"
)

// CaptureTool handles memory_capture.
type CaptureTool struct {
	engine *engine.Engine
}

func NewCaptureTool(e *engine.Engine) *CaptureTool {
	return &CaptureTool{engine: e}
}

func (t *CaptureTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("memory_capture",
		mcpgo.WithDescription(
			"Store a lasting fact about the user. Type, tags and impact are classified automatically "+
				"when omitted.",
		),
		mcpgo.WithString("owner_id",
			mcpgo.Required(),
			mcpgo.Description("User the memory belongs to"),
		),
		mcpgo.WithString("text",
			mcpgo.Required(),
			mcpgo.Description("The fact in the user's words"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("important_info, personal_trait, key_event or date_reminder"),
			mcpgo.Enum(memoryTypeNames()...),
		),
		mcpgo.WithString("system_tags",
			mcpgo.Description("Comma-separated: preference, constraint, habit, milestone"),
		),
		mcpgo.WithString("user_tags",
			mcpgo.Description("Comma-separated free-form tags"),
		),
		mcpgo.WithString("reminder_date",
			mcpgo.Description("YYYY-MM-DD for date reminders"),
		),
	)
}

func (t *CaptureTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	in := engine.CaptureInput{
		OwnerID:    req.GetString("owner_id", ""),
		Text:       req.GetString("text", ""),
		Type:       model.MemoryType(req.GetString("type", "")),
		SystemTags: listArg(req, "system_tags"),
		UserTags:   listArg(req, "user_tags"),
	}
	if in.OwnerID == "" {
		return mcpgo.NewToolResultError("'owner_id' is required"), nil
	}
	if in.Text == "" {
		return mcpgo.NewToolResultError("'text' is required"), nil
	}
	if d := req.GetString("reminder_date", ""); d != "" {
		when, err := time.ParseInLocation(time.DateOnly, d, time.Local)
		if err != nil {
			return mcpgo.NewToolResultError("'reminder_date' must be YYYY-MM-DD"), nil
		}
		in.ReminderDate = &when
	}

	res, err := t.engine.Capture(ctx, in)
	if err != nil {
		return errorResult("capture", err), nil
	}
	return jsonResult(fmt.Sprintf("Memory saved as %s (classified by %s).", res.Memory.Type, res.ClassifiedBy), res.Memory)
}

// SearchTool handles memory_search.
type SearchTool struct {
	engine *engine.Engine
}

func NewSearchTool(e *engine.Engine) *SearchTool {
	return &SearchTool{engine: e}
}

func (t *SearchTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("memory_search",
		mcpgo.WithDescription(
			"Find what you know about the user. Key facts (traits, events, dates) rank first. "+
				"An empty query lists memories matching the filters.",
		),
		mcpgo.WithString("owner_id",
			mcpgo.Required(),
			mcpgo.Description("User whose memories to search"),
		),
		mcpgo.WithString("query",
			mcpgo.Description("Natural language or keywords"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Restrict to one memory type"),
			mcpgo.Enum(memoryTypeNames()...),
		),
		mcpgo.WithString("tags",
			mcpgo.Description("Comma-separated tags; a memory must carry at least one"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Max results (default: 10)"),
		),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	owner := req.GetString("owner_id", "")
	if owner == "" {
		return mcpgo.NewToolResultError("'owner_id' is required"), nil
	}
	results, err := t.engine.Search(ctx, engine.SearchRequest{
		OwnerID: owner,
		Query:   req.GetString("query", ""),
		Type:    model.MemoryType(req.GetString("type", "")),
		Tags:    listArg(req, "tags"),
		Limit:   intArg(req, "limit", 0),
	})
	if err != nil {
		return errorResult("search", err), nil
	}
	if len(results) == 0 {
		return mcpgo.NewToolResultText("No memories found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories:\n\n", len(results))
	for i, r := range results {
		m := r.Memory
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, m.Type, m.Text)
		if tags := m.AllTags(); len(tags) > 0 {
			fmt.Fprintf(&b, "   tags: %s\n", strings.Join(tags, ", "))
		}
		fmt.Fprintf(&b, "   id: %s  score: %.3f  matched: %s\n", m.ID, r.Explanation.Total,
			strings.Join(r.Explanation.MatchedBy, "+"))
	}
	return mcpgo.NewToolResultText(b.String()), nil
}

func memoryTypeNames() []string {
	out := make([]string, len(model.MemoryTypes))
	for i, t := range model.MemoryTypes {
		out[i] = string(t)
	}
	return out
}
