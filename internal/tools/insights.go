package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── threshold_insights ──────────────────────────────────────────────────────

// ThresholdInsightsTool handles the threshold_insights MCP tool.
type ThresholdInsightsTool struct {
	engine *engine.Engine
}

// NewThresholdInsightsTool creates a ThresholdInsightsTool.
func NewThresholdInsightsTool(eng *engine.Engine) *ThresholdInsightsTool {
	return &ThresholdInsightsTool{engine: eng}
}

// Definition returns the MCP tool definition for threshold_insights.
func (t *ThresholdInsightsTool) Definition() mcp.Tool {
	return mcp.NewTool("threshold_insights",
		mcp.WithDescription(
			"Report a user's threshold adaptation state: current vs style-recommended "+
				"threshold, adjustment history, success rate, and tuning recommendations.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User identifier"),
		),
	)
}

// Handle processes the threshold_insights tool call.
func (t *ThresholdInsightsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	insights, err := t.engine.GetThresholdInsights(userID)
	if errors.Is(err, engine.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No profile for %s yet. Call get_threshold to create one.", userID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading insights: %v", err)), nil
	}

	out, err := json.MarshalIndent(insights, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding insights: %v", err)), nil
	}
	return mcp.NewToolResultText("📊 Threshold Insights:\n" + string(out)), nil
}

// ─── learning_insights ───────────────────────────────────────────────────────

// LearningInsightsTool handles the learning_insights MCP tool.
type LearningInsightsTool struct {
	engine *engine.Engine
}

// NewLearningInsightsTool creates a LearningInsightsTool.
func NewLearningInsightsTool(eng *engine.Engine) *LearningInsightsTool {
	return &LearningInsightsTool{engine: eng}
}

// Definition returns the MCP tool definition for learning_insights.
func (t *LearningInsightsTool) Definition() mcp.Tool {
	return mcp.NewTool("learning_insights",
		mcp.WithDescription(
			"Summarize what the outcome learner has observed: total recorded patterns, "+
				"average effectiveness per strategy, and per-task-type performance.",
		),
	)
}

// Handle processes the learning_insights tool call.
func (t *LearningInsightsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	insights, err := t.engine.GetLearningInsights()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading insights: %v", err)), nil
	}
	if insights.TotalPatterns == 0 {
		return mcp.NewToolResultText("No learning data available yet. Record outcomes with record_outcome first."), nil
	}

	out, err := json.MarshalIndent(insights, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding insights: %v", err)), nil
	}
	return mcp.NewToolResultText("🧠 Learning Insights:\n" + string(out)), nil
}
