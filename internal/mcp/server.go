// Package mcp exposes waypoint's memory, goal and check-in operations as MCP
// tools over stdio.
//
// Each tool is a struct holding its dependencies, with Definition returning
// the schema and Handle processing a call. Handlers never return a Go error
// for bad input or failed operations; they return a tool error result the
// agent can read.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lazypower/waypoint/internal/decision"
	"github.com/lazypower/waypoint/internal/engine"
	"github.com/lazypower/waypoint/internal/planner"
)

// Deps are the services the tools call into.
type Deps struct {
	Engine    *engine.Engine
	Decisions *decision.Engine
	Planner   *planner.Planner
	Logger    *slog.Logger
}

// New builds the MCP server with every waypoint tool registered.
func New(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"waypoint",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	capture := NewCaptureTool(deps.Engine)
	s.AddTool(capture.Definition(), capture.Handle)

	search := NewSearchTool(deps.Engine)
	s.AddTool(search.Definition(), search.Handle)

	clarify := NewClarifyTool(deps.Decisions)
	s.AddTool(clarify.Definition(), clarify.Handle)

	create := NewCreateGoalTool(deps.Planner)
	s.AddTool(create.Definition(), create.Handle)

	balance := NewBalanceTool(deps.Planner)
	s.AddTool(balance.Definition(), balance.Handle)

	checkin := NewCheckInTool(deps.Planner)
	s.AddTool(checkin.Definition(), checkin.Handle)

	resolve := NewResolveTool(deps.Planner)
	s.AddTool(resolve.Definition(), resolve.Handle)

	if deps.Logger != nil {
		deps.Logger.Debug("mcp server ready", "version", version, "tools", 7)
	}
	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `You have access to waypoint, a personal goal planner with long-term memory.

- Call memory_capture when the user shares a lasting fact about themselves: preferences,
  constraints, habits, important dates or life events.
- Call memory_search before giving advice that depends on what you know about the user.
- To set a new goal, call goal_clarify first, ask the user the returned questions, then call
  goal_create with their answers.
- After the user reports on a task, call task_checkin. If it returns an adjustment, present the
  options and call adjustment_resolve with the user's choice.
- Use goal_balance to check whether a new goal would neglect or over-focus a life dimension.`
