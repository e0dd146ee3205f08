package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// RelevanceTool handles the score_relevance MCP tool.
type RelevanceTool struct {
	engine *engine.Engine
}

// NewRelevanceTool creates a RelevanceTool.
func NewRelevanceTool(eng *engine.Engine) *RelevanceTool {
	return &RelevanceTool{engine: eng}
}

// Definition returns the MCP tool definition for score_relevance.
func (t *RelevanceTool) Definition() mcp.Tool {
	return mcp.NewTool("score_relevance",
		mcp.WithDescription(
			"Score each context fragment's relevance to a message and report which "+
				"fragments clear the inclusion threshold, with per-fragment reasons "+
				"and a selection summary.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user message to score fragments against"),
		),
		mcp.WithString("fragments",
			mcp.Required(),
			mcp.Description(`JSON object of named fragments, e.g. {"tech_stack": "Go, SQLite", "workflow_preferences": "..."}`),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Relevance threshold in [0.3, 0.9] (default: 0.6)"),
		),
	)
}

// Handle processes the score_relevance tool call.
func (t *RelevanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}

	fragments, err := parseFragments(req.GetString("fragments", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid fragments JSON: %v", err)), nil
	}
	if len(fragments) == 0 {
		return mcp.NewToolResultError("fragments is required and must be a non-empty JSON object"), nil
	}

	threshold := req.GetFloat("threshold", 0)
	scores := t.engine.ScoreRelevance(message, fragments, threshold)

	detail, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding scores: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString(engine.SelectionSummary(scores))
	b.WriteString("\n")
	b.Write(detail)
	return mcp.NewToolResultText(b.String()), nil
}
