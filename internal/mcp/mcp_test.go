package mcp

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/lazypower/waypoint/internal/config"
	"github.com/lazypower/waypoint/internal/decision"
	"github.com/lazypower/waypoint/internal/engine"
	"github.com/lazypower/waypoint/internal/planner"
	"github.com/lazypower/waypoint/internal/store"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

func testDeps(t *testing.T) Deps {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	eng := engine.New(db, cfg.Search, logger)
	t.Cleanup(eng.Stop)
	dec := decision.New(nil, cfg, logger)
	dec.Memories = eng
	eng.Classifier = dec

	return Deps{
		Engine:    eng,
		Decisions: dec,
		Planner:   planner.New(db, dec, nil, logger),
		Logger:    logger,
	}
}

func makeReq(args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcpgo.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func call(t *testing.T, h func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	res, err := h(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return resultText(res), res.IsError
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestToolDefinitions(t *testing.T) {
	deps := testDeps(t)
	tests := []struct {
		def      mcpgo.Tool
		name     string
		required []string
	}{
		{NewCaptureTool(deps.Engine).Definition(), "memory_capture", []string{"owner_id", "text"}},
		{NewSearchTool(deps.Engine).Definition(), "memory_search", []string{"owner_id"}},
		{NewClarifyTool(deps.Decisions).Definition(), "goal_clarify", []string{"prompt"}},
		{NewCreateGoalTool(deps.Planner).Definition(), "goal_create", []string{"owner_id", "prompt"}},
		{NewBalanceTool(deps.Planner).Definition(), "goal_balance", []string{"owner_id"}},
		{NewCheckInTool(deps.Planner).Definition(), "task_checkin", []string{"task_id", "outcome"}},
		{NewResolveTool(deps.Planner).Definition(), "adjustment_resolve", []string{"adjustment_id", "decision"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.def.Name != tt.name {
				t.Errorf("name = %q, want %q", tt.def.Name, tt.name)
			}
			for _, r := range tt.required {
				if _, ok := tt.def.InputSchema.Properties[r]; !ok {
					t.Errorf("missing %q parameter", r)
				}
				found := false
				for _, req := range tt.def.InputSchema.Required {
					if req == r {
						found = true
					}
				}
				if !found {
					t.Errorf("%q should be required", r)
				}
			}
		})
	}
}

func TestNewRegistersTools(t *testing.T) {
	s := New(testDeps(t), "test")
	if s == nil {
		t.Fatal("New returned nil")
	}
}

// ─── Memory tools ────────────────────────────────────────────────────────────

func TestCaptureAndSearch(t *testing.T) {
	deps := testDeps(t)
	capture := NewCaptureTool(deps.Engine)
	search := NewSearchTool(deps.Engine)

	text, isErr := call(t, capture.Handle, map[string]any{
		"owner_id":  "u1",
		"text":      "I am allergic to peanuts",
		"user_tags": "food, health",
	})
	if isErr {
		t.Fatalf("capture failed: %s", text)
	}
	if !strings.Contains(text, "personal_trait") {
		t.Errorf("capture result should report the classified type:\n%s", text)
	}

	text, isErr = call(t, search.Handle, map[string]any{"owner_id": "u1", "query": "peanuts"})
	if isErr {
		t.Fatalf("search failed: %s", text)
	}
	if !strings.Contains(text, "Found 1 memories") || !strings.Contains(text, "allergic to peanuts") {
		t.Errorf("unexpected search output:\n%s", text)
	}
	if !strings.Contains(text, "tags: constraint, food, health") {
		t.Errorf("search output should list merged tags:\n%s", text)
	}

	text, _ = call(t, search.Handle, map[string]any{"owner_id": "u2", "query": "peanuts"})
	if text != "No memories found." {
		t.Errorf("other owner should see nothing, got:\n%s", text)
	}
}

func TestCaptureValidation(t *testing.T) {
	capture := NewCaptureTool(testDeps(t).Engine)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing owner", map[string]any{"text": "x"}, "'owner_id' is required"},
		{"missing text", map[string]any{"owner_id": "u1"}, "'text' is required"},
		{"bad date", map[string]any{"owner_id": "u1", "text": "x", "reminder_date": "soon"}, "YYYY-MM-DD"},
		{"bad type", map[string]any{"owner_id": "u1", "text": "x", "type": "gossip"}, "INVALID_REQUEST"},
		{"bad system tag", map[string]any{"owner_id": "u1", "text": "x", "system_tags": []any{"mood"}}, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, capture.Handle, tt.args)
			if !isErr {
				t.Fatalf("expected error result, got:\n%s", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("error = %q, want it to contain %q", text, tt.want)
			}
		})
	}
}

// ─── Goal tools ──────────────────────────────────────────────────────────────

func TestClarifyAndCreateGoal(t *testing.T) {
	deps := testDeps(t)

	text, isErr := call(t, NewClarifyTool(deps.Decisions).Handle, map[string]any{"prompt": "run a marathon"})
	if isErr {
		t.Fatalf("clarify failed: %s", text)
	}
	if !strings.Contains(text, "source: fallback") {
		t.Errorf("clarify without a model should fall back:\n%s", text)
	}

	text, isErr = call(t, NewCreateGoalTool(deps.Planner).Handle, map[string]any{
		"owner_id": "u1",
		"prompt":   "run a marathon",
		"answers":  map[string]any{"timeframe": "6_months", "hours": 5},
	})
	if isErr {
		t.Fatalf("create failed: %s", text)
	}
	if !strings.Contains(text, `Created goal "run a marathon"`) || !strings.Contains(text, "with 3 tasks") {
		t.Errorf("unexpected create output:\n%s", text)
	}

	text, isErr = call(t, NewBalanceTool(deps.Planner).Handle, map[string]any{"owner_id": "u1", "dimension": "health"})
	if isErr {
		t.Fatalf("balance failed: %s", text)
	}
	if !strings.Contains(text, `"growth": 1`) || !strings.Contains(text, `"health": 1`) {
		t.Errorf("balance should count the goal and the candidate:\n%s", text)
	}

	text, isErr = call(t, NewBalanceTool(deps.Planner).Handle, map[string]any{"owner_id": "u1", "dimension": "wealth"})
	if !isErr || !strings.Contains(text, "INVALID_REQUEST") {
		t.Errorf("invalid dimension should be rejected, got:\n%s", text)
	}
}

// ─── Check-in tools ──────────────────────────────────────────────────────────

func TestCheckInAndResolve(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	plan, err := deps.Planner.CreateGoal(ctx, planner.CreateGoalInput{OwnerID: "u1", Prompt: "learn guitar"})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	task := plan.Tasks[0]

	checkin := NewCheckInTool(deps.Planner)
	text, isErr := call(t, checkin.Handle, map[string]any{
		"task_id":     task.ID,
		"outcome":     "partial",
		"reason_code": "external_interrupt",
		"mood_rating": float64(2),
	})
	if isErr {
		t.Fatalf("check-in failed: %s", text)
	}
	if !strings.Contains(text, "Proposed postpone") || !strings.Contains(text, "a) ") {
		t.Errorf("check-in should propose a postpone with options:\n%s", text)
	}

	pending, err := deps.Planner.PendingAdjustments(ctx, "u1")
	if err != nil || len(pending) != 1 {
		t.Fatalf("PendingAdjustments = %v, %v; want one", pending, err)
	}
	adjID := pending[0].ID

	resolve := NewResolveTool(deps.Planner)
	text, isErr = call(t, resolve.Handle, map[string]any{"adjustment_id": adjID, "decision": "maybe"})
	if !isErr || !strings.Contains(text, "accept or reject") {
		t.Errorf("bad decision should be rejected, got:\n%s", text)
	}

	text, isErr = call(t, resolve.Handle, map[string]any{"adjustment_id": adjID, "decision": "accept", "option_id": "b"})
	if isErr {
		t.Fatalf("accept failed: %s", text)
	}
	if !strings.Contains(text, "accepted") {
		t.Errorf("unexpected accept output:\n%s", text)
	}

	text, isErr = call(t, resolve.Handle, map[string]any{"adjustment_id": adjID, "decision": "reject"})
	if !isErr || !strings.Contains(text, "INVALID_STATE") {
		t.Errorf("resolving twice should be INVALID_STATE, got:\n%s", text)
	}
}

func TestCheckInErrors(t *testing.T) {
	checkin := NewCheckInTool(testDeps(t).Planner)

	text, isErr := call(t, checkin.Handle, map[string]any{"task_id": "missing", "outcome": "completed"})
	if !isErr || !strings.Contains(text, "NOT_FOUND") {
		t.Errorf("unknown task should be NOT_FOUND, got:\n%s", text)
	}

	text, isErr = call(t, checkin.Handle, map[string]any{"task_id": "x", "outcome": "meh"})
	if !isErr || !strings.Contains(text, "INVALID_REQUEST") {
		t.Errorf("bad outcome should be INVALID_REQUEST, got:\n%s", text)
	}
}

func TestListArg(t *testing.T) {
	req := makeReq(map[string]any{
		"csv":   " a, b ,,c ",
		"array": []any{"x", " ", 3, "y"},
	})
	if got := strings.Join(listArg(req, "csv"), "|"); got != "a|b|c" {
		t.Errorf("csv = %q", got)
	}
	if got := strings.Join(listArg(req, "array"), "|"); got != "x|y" {
		t.Errorf("array = %q", got)
	}
	if got := listArg(req, "missing"); got != nil {
		t.Errorf("missing = %v, want nil", got)
	}
}
