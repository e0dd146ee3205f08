package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// AnalyzeTool handles the analyze_task MCP tool.
type AnalyzeTool struct {
	engine *engine.Engine
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(eng *engine.Engine) *AnalyzeTool {
	return &AnalyzeTool{engine: eng}
}

// Definition returns the MCP tool definition for analyze_task.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_task",
		mcp.WithDescription(
			"Classify a user message into a task type (code_generation, debugging, "+
				"architecture, learning, etc.) with complexity, urgency, technical depth, "+
				"and creativity scores, plus the recommended strategy for it.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user message to classify"),
		),
		mcp.WithString("context",
			mcp.Description("JSON object of named context fragments (tech_stack and project_plans influence scoring)"),
		),
		mcp.WithString("user_id",
			mcp.Description("User identifier for style-aware strategy selection"),
		),
	)
}

// Handle processes the analyze_task tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}

	fragments, err := parseFragments(req.GetString("context", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid context JSON: %v", err)), nil
	}

	analysis := t.engine.AnalyzeTask(message, fragments)
	optimization := t.engine.SelectStrategy(analysis, req.GetString("user_id", ""))

	out, err := json.MarshalIndent(struct {
		Analysis     engine.Analysis     `json:"analysis"`
		Optimization engine.Optimization `json:"optimization"`
	}{analysis, optimization}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding analysis: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
