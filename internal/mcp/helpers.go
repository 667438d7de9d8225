package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	werrors "github.com/lazypower/waypoint/internal/errors"
)

// intArg extracts an integer argument, returning defaultVal when the key is
// missing or not a number (JSON numbers arrive as float64).
func intArg(req mcpgo.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// listArg accepts either a JSON array of strings or a comma-separated string.
func listArg(req mcpgo.CallToolRequest, key string) []string {
	var out []string
	switch v := req.GetArguments()[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// mapArg reads an object argument of string values. Non-string values are
// formatted with %v.
func mapArg(req mcpgo.CallToolRequest, key string) map[string]string {
	obj, ok := req.GetArguments()[key].(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// jsonResult renders a one-line summary followed by v as indented JSON.
func jsonResult(summary string, v any) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcpgo.NewToolResultText(summary + "\n\n" + string(data)), nil
}

// errorResult turns a failed operation into a tool error, keeping the error
// code visible to the agent.
func errorResult(action string, err error) *mcpgo.CallToolResult {
	var e *werrors.Error
	if stderrors.As(err, &e) {
		return mcpgo.NewToolResultError(fmt.Sprintf("%s failed (%s): %s", action, e.Code, e.Message))
	}
	return mcpgo.NewToolResultError(fmt.Sprintf("%s failed: %v", action, err))
}
