package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── record_outcome ──────────────────────────────────────────────────────────

// RecordOutcomeTool handles the record_outcome MCP tool.
type RecordOutcomeTool struct {
	engine *engine.Engine
}

// NewRecordOutcomeTool creates a RecordOutcomeTool.
func NewRecordOutcomeTool(eng *engine.Engine) *RecordOutcomeTool {
	return &RecordOutcomeTool{engine: eng}
}

// Definition returns the MCP tool definition for record_outcome.
func (t *RecordOutcomeTool) Definition() mcp.Tool {
	return mcp.NewTool("record_outcome",
		mcp.WithDescription(
			"Record the outcome of one augmented interaction so future requests for "+
				"the same task type can prefer the strategy that worked best.",
		),
		mcp.WithString("task_type",
			mcp.Required(),
			mcp.Description("Task type the strategy was applied to (e.g. code_generation, debugging)"),
		),
		mcp.WithString("strategy",
			mcp.Required(),
			mcp.Description("Strategy that was used (e.g. precision_technical, comprehensive)"),
		),
		mcp.WithNumber("feedback",
			mcp.Required(),
			mcp.Description("User feedback score in [0, 1]"),
		),
		mcp.WithNumber("quality",
			mcp.Required(),
			mcp.Description("Response quality score in [0, 1]"),
		),
		mcp.WithNumber("execution_time",
			mcp.Description("Response latency in seconds"),
		),
		mcp.WithNumber("estimated_tokens",
			mcp.Description("Estimated token count of the response (refines token efficiency)"),
		),
	)
}

// Handle processes the record_outcome tool call.
func (t *RecordOutcomeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feedback := req.GetFloat("feedback", -1)
	quality := req.GetFloat("quality", -1)
	if feedback < 0 || feedback > 1 || quality < 0 || quality > 1 {
		return mcp.NewToolResultError("feedback and quality must be in [0, 1]"), nil
	}

	outcome := engine.Outcome{
		TaskType:        engine.ParseTaskType(req.GetString("task_type", "")),
		Strategy:        engine.ParseStrategy(req.GetString("strategy", "")),
		UserFeedback:    feedback,
		ResponseQuality: quality,
		ExecutionTime:   req.GetFloat("execution_time", 0),
		EstimatedTokens: int(req.GetFloat("estimated_tokens", 0)),
	}

	if err := t.engine.RecordOutcome(outcome); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recording outcome: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"✅ Outcome recorded for %s / %s", outcome.TaskType, outcome.Strategy)), nil
}

// ─── optimal_strategy ────────────────────────────────────────────────────────

// OptimalStrategyTool handles the optimal_strategy MCP tool.
type OptimalStrategyTool struct {
	engine *engine.Engine
}

// NewOptimalStrategyTool creates an OptimalStrategyTool.
func NewOptimalStrategyTool(eng *engine.Engine) *OptimalStrategyTool {
	return &OptimalStrategyTool{engine: eng}
}

// Definition returns the MCP tool definition for optimal_strategy.
func (t *OptimalStrategyTool) Definition() mcp.Tool {
	return mcp.NewTool("optimal_strategy",
		mcp.WithDescription(
			"Look up the learned best strategy for a task type, based on recorded "+
				"outcome effectiveness. Returns nothing when no outcomes exist yet.",
		),
		mcp.WithString("task_type",
			mcp.Required(),
			mcp.Description("Task type to look up (e.g. code_generation, debugging)"),
		),
	)
}

// Handle processes the optimal_strategy tool call.
func (t *OptimalStrategyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := engine.ParseTaskType(req.GetString("task_type", ""))

	strategy, ok := t.engine.OptimalStrategy(task)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No learned strategy for %s yet. Record outcomes with record_outcome first.", task)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("🎯 Optimal strategy for %s: %s", task, strategy)), nil
}
