package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── get_threshold ───────────────────────────────────────────────────────────

// ThresholdTool handles the get_threshold MCP tool.
type ThresholdTool struct {
	engine *engine.Engine
}

// NewThresholdTool creates a ThresholdTool.
func NewThresholdTool(eng *engine.Engine) *ThresholdTool {
	return &ThresholdTool{engine: eng}
}

// Definition returns the MCP tool definition for get_threshold.
func (t *ThresholdTool) Definition() mcp.Tool {
	return mcp.NewTool("get_threshold",
		mcp.WithDescription(
			"Get a user's personalized relevance threshold, creating their profile on "+
				"first contact. Optionally pass recent message history to (re)infer the "+
				"user's communication style.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User identifier"),
		),
		mcp.WithString("history",
			mcp.Description("JSON array of the user's recent messages for style inference"),
		),
	)
}

// Handle processes the get_threshold tool call.
func (t *ThresholdTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	history, err := parseHistory(req.GetString("history", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid history JSON: %v", err)), nil
	}

	threshold := t.engine.GetPersonalizedThreshold(userID, history)
	return mcp.NewToolResultText(fmt.Sprintf("⚡ Personalized threshold for %s: %.3f", userID, threshold)), nil
}

// ─── adjust_threshold ────────────────────────────────────────────────────────

// AdjustThresholdTool handles the adjust_threshold MCP tool.
type AdjustThresholdTool struct {
	engine *engine.Engine
}

// NewAdjustThresholdTool creates an AdjustThresholdTool.
func NewAdjustThresholdTool(eng *engine.Engine) *AdjustThresholdTool {
	return &AdjustThresholdTool{engine: eng}
}

// Definition returns the MCP tool definition for adjust_threshold.
func (t *AdjustThresholdTool) Definition() mcp.Tool {
	return mcp.NewTool("adjust_threshold",
		mcp.WithDescription(
			"Recompute a user's relevance threshold from recent performance. The "+
				"adjustment is debounced: it applies only when at least 10 minutes have "+
				"passed since the last one and the change exceeds 0.05.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User identifier"),
		),
		mcp.WithNumber("success_rate",
			mcp.Required(),
			mcp.Description("Overall success rate in [0, 1]"),
		),
		mcp.WithString("recent_performance",
			mcp.Description("JSON array of recent per-interaction scores in [0, 1], e.g. [0.7, 0.8, 0.9]"),
		),
	)
}

// Handle processes the adjust_threshold tool call.
func (t *AdjustThresholdTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	successRate := req.GetFloat("success_rate", -1)
	if successRate < 0 || successRate > 1 {
		return mcp.NewToolResultError("success_rate must be in [0, 1]"), nil
	}

	var performance []float64
	if raw := req.GetString("recent_performance", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &performance); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid recent_performance JSON: %v", err)), nil
		}
	}

	threshold, adjusted, err := t.engine.AdjustThreshold(userID, successRate, performance)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("adjusting threshold: %v", err)), nil
	}
	if !adjusted {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No adjustment applied for %s (debounced or change too small). Current threshold: %.3f",
			userID, threshold)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("🔄 Adjusted threshold for %s: %.3f", userID, threshold)), nil
}

// parseHistory decodes a JSON string array. Empty input is valid.
func parseHistory(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var history []string
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, err
	}
	return history, nil
}
