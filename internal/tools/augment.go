// Package tools implements the MCP tool handlers for the adaptive prompt
// engine: prompt augmentation, task analysis, relevance scoring, threshold
// management, and outcome learning.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// AugmentTool handles the augment_prompt MCP tool.
type AugmentTool struct {
	engine *engine.Engine
}

// NewAugmentTool creates an AugmentTool.
func NewAugmentTool(eng *engine.Engine) *AugmentTool {
	return &AugmentTool{engine: eng}
}

// Definition returns the MCP tool definition for augment_prompt.
func (t *AugmentTool) Definition() mcp.Tool {
	return mcp.NewTool("augment_prompt",
		mcp.WithDescription(
			"Augment a user message with strategy guidance, behavioral steering, and "+
				"relevance-filtered context. Runs the full pipeline: task classification, "+
				"strategy selection, context scoring against the user's personalized "+
				"threshold, and prompt assembly.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's raw message to augment"),
		),
		mcp.WithString("user_id",
			mcp.Description("User identifier for personalized thresholds (omit for defaults)"),
		),
		mcp.WithString("context",
			mcp.Description(`JSON object of named context fragments, e.g. {"tech_stack": "Go, SQLite", "conversation_summary": "..."}`),
		),
		mcp.WithBoolean("include_details",
			mcp.Description("Include the analysis, scores, and selection summary alongside the prompt"),
		),
	)
}

// Handle processes the augment_prompt tool call.
func (t *AugmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}
	userID := req.GetString("user_id", "")

	fragments, err := parseFragments(req.GetString("context", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid context JSON: %v", err)), nil
	}

	result := t.engine.AugmentPrompt(userID, message, fragments)

	if !req.GetBool("include_details", false) {
		return mcp.NewToolResultText(result.Prompt), nil
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultText(result.Prompt), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// parseFragments decodes the context JSON parameter. Empty input is a valid
// empty pool.
func parseFragments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var fragments map[string]any
	if err := json.Unmarshal([]byte(raw), &fragments); err != nil {
		return nil, err
	}
	return fragments, nil
}
