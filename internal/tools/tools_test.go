package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/HendryAvila/johny/internal/profile"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestEngine creates an engine over a real SQLite store in a temp
// directory.
func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	store, err := profile.New(profile.Config{
		DataDir:       t.TempDir(),
		MaxAdjustLog:  20,
		HistoryWindow: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return engine.New(store)
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

// mustBeToolError asserts the Handle call returns a tool error (not a Go error).
func mustBeToolError(t *testing.T, r *mcp.CallToolResult, err error, wantSubstr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !r.IsError {
		t.Fatalf("expected tool error, got: %s", resultText(r))
	}
	if wantSubstr != "" && !strings.Contains(resultText(r), wantSubstr) {
		t.Errorf("error %q does not mention %q", resultText(r), wantSubstr)
	}
}

// ─── AugmentTool ─────────────────────────────────────────────────────────────

func TestAugmentTool_Definition(t *testing.T) {
	def := NewAugmentTool(newTestEngine(t)).Definition()
	if def.Name != "augment_prompt" {
		t.Errorf("tool name = %q, want %q", def.Name, "augment_prompt")
	}

	props := def.InputSchema.Properties
	for _, p := range []string{"message", "user_id", "context", "include_details"} {
		if _, ok := props[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
	required := def.InputSchema.Required
	if len(required) != 1 || required[0] != "message" {
		t.Errorf("required = %v, want [message]", required)
	}
}

func TestAugmentTool_MissingMessage(t *testing.T) {
	tool := NewAugmentTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "message is required")
}

func TestAugmentTool_InvalidContextJSON(t *testing.T) {
	tool := NewAugmentTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message": "fix the bug",
		"context": "{not json",
	}))
	mustBeToolError(t, result, err, "invalid context JSON")
}

func TestAugmentTool_ReturnsAugmentedPrompt(t *testing.T) {
	tool := NewAugmentTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message": "implement a config loader",
		"user_id": "u1",
		"context": `{"tech_stack": "Go, SQLite"}`,
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "=== 💬 USER REQUEST ===") {
		t.Errorf("prompt missing user request section:\n%s", text)
	}
	if !strings.HasSuffix(text, "implement a config loader") {
		t.Error("original message should close the prompt")
	}
}

func TestAugmentTool_IncludeDetails(t *testing.T) {
	tool := NewAugmentTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message":         "implement a config loader",
		"include_details": true,
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	for _, field := range []string{`"prompt"`, `"analysis"`, `"optimization"`, `"threshold"`} {
		if !strings.Contains(text, field) {
			t.Errorf("details output missing %s field", field)
		}
	}
}

// ─── AnalyzeTool ─────────────────────────────────────────────────────────────

func TestAnalyzeTool_ClassifiesMessage(t *testing.T) {
	tool := NewAnalyzeTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message": "debug this nil pointer error in the handler",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, `"task_type": "debugging"`) {
		t.Errorf("expected debugging classification, got:\n%s", text)
	}
	if !strings.Contains(text, `"strategy"`) {
		t.Error("output missing the selected strategy")
	}
}

func TestAnalyzeTool_MissingMessage(t *testing.T) {
	tool := NewAnalyzeTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "message is required")
}

// ─── RelevanceTool ───────────────────────────────────────────────────────────

func TestRelevanceTool_ScoresFragments(t *testing.T) {
	tool := NewRelevanceTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message":   "help me debug this database error",
		"fragments": `{"tech_stack": "Go with SQLite database", "workflow_preferences": "standup at 10am"}`,
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "tech_stack") || !strings.Contains(text, "workflow_preferences") {
		t.Errorf("scores missing fragments:\n%s", text)
	}
	if !strings.Contains(text, "Context Selection Summary") {
		t.Error("output missing the selection summary")
	}
}

func TestRelevanceTool_EmptyFragments(t *testing.T) {
	tool := NewRelevanceTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message":   "help me debug",
		"fragments": `{}`,
	}))
	mustBeToolError(t, result, err, "non-empty")
}

func TestRelevanceTool_InvalidFragmentsJSON(t *testing.T) {
	tool := NewRelevanceTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message":   "help me debug",
		"fragments": "nope",
	}))
	mustBeToolError(t, result, err, "invalid fragments JSON")
}

// ─── ThresholdTool / AdjustThresholdTool ─────────────────────────────────────

func TestThresholdTool_CreatesProfile(t *testing.T) {
	tool := NewThresholdTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": "u1",
		"history": `["quick question", "keep it brief", "simple answer please"]`,
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "Personalized threshold for u1: 0.700") {
		t.Errorf("expected the concise-style threshold, got: %s", text)
	}
}

func TestThresholdTool_MissingUser(t *testing.T) {
	tool := NewThresholdTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "user_id is required")
}

func TestThresholdTool_InvalidHistoryJSON(t *testing.T) {
	tool := NewThresholdTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": "u1",
		"history": `{"not": "an array"}`,
	}))
	mustBeToolError(t, result, err, "invalid history JSON")
}

func TestAdjustThresholdTool_Debounced(t *testing.T) {
	eng := newTestEngine(t)
	// Fresh profile: LastAdjusted is now, so the cooldown holds.
	eng.GetPersonalizedThreshold("u1", nil)

	tool := NewAdjustThresholdTool(eng)
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id":      "u1",
		"success_rate": 0.2,
	}))
	mustNotError(t, result, err)

	if !strings.Contains(resultText(result), "No adjustment applied") {
		t.Errorf("expected the debounce message, got: %s", resultText(result))
	}
}

func TestAdjustThresholdTool_InvalidSuccessRate(t *testing.T) {
	tool := NewAdjustThresholdTool(newTestEngine(t))
	for _, rate := range []float64{-0.1, 1.5} {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"user_id":      "u1",
			"success_rate": rate,
		}))
		mustBeToolError(t, result, err, "success_rate must be in [0, 1]")
	}
}

func TestAdjustThresholdTool_UnknownUser(t *testing.T) {
	tool := NewAdjustThresholdTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id":      "nobody",
		"success_rate": 0.5,
	}))
	mustBeToolError(t, result, err, "adjusting threshold")
}

// ─── Outcome tools ───────────────────────────────────────────────────────────

func TestRecordOutcomeTool_ThenOptimalStrategy(t *testing.T) {
	eng := newTestEngine(t)

	record := NewRecordOutcomeTool(eng)
	result, err := record.Handle(context.Background(), makeReq(map[string]interface{}{
		"task_type":      "debugging",
		"strategy":       "problem_solving",
		"feedback":       0.9,
		"quality":        0.8,
		"execution_time": 4.0,
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "Outcome recorded for debugging / problem_solving") {
		t.Errorf("unexpected confirmation: %s", resultText(result))
	}

	optimal := NewOptimalStrategyTool(eng)
	result, err = optimal.Handle(context.Background(), makeReq(map[string]interface{}{
		"task_type": "debugging",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "Optimal strategy for debugging: problem_solving") {
		t.Errorf("unexpected lookup result: %s", resultText(result))
	}
}

func TestRecordOutcomeTool_InvalidScores(t *testing.T) {
	tool := NewRecordOutcomeTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"task_type": "debugging",
		"strategy":  "problem_solving",
		"feedback":  1.2,
		"quality":   0.5,
	}))
	mustBeToolError(t, result, err, "must be in [0, 1]")
}

func TestOptimalStrategyTool_NoData(t *testing.T) {
	tool := NewOptimalStrategyTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"task_type": "architecture",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No learned strategy for architecture yet") {
		t.Errorf("unexpected empty-state message: %s", resultText(result))
	}
}

// ─── Insights tools ──────────────────────────────────────────────────────────

func TestThresholdInsightsTool_NoProfile(t *testing.T) {
	tool := NewThresholdInsightsTool(newTestEngine(t))
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": "nobody",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No profile for nobody yet") {
		t.Errorf("unexpected empty-state message: %s", resultText(result))
	}
}

func TestThresholdInsightsTool_ReportsProfile(t *testing.T) {
	eng := newTestEngine(t)
	eng.GetPersonalizedThreshold("u1", nil)

	tool := NewThresholdInsightsTool(eng)
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": "u1",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "Threshold Insights") || !strings.Contains(text, `"current_threshold"`) {
		t.Errorf("unexpected insights output:\n%s", text)
	}
}

func TestLearningInsightsTool_EmptyThenPopulated(t *testing.T) {
	eng := newTestEngine(t)
	tool := NewLearningInsightsTool(eng)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No learning data available yet") {
		t.Errorf("unexpected empty-state message: %s", resultText(result))
	}

	if err := eng.RecordOutcome(engine.Outcome{
		TaskType: engine.TaskDebugging, Strategy: engine.StrategyProblemSolving,
		UserFeedback: 0.8, ResponseQuality: 0.8, ExecutionTime: 5,
	}); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)
	text := resultText(result)
	if !strings.Contains(text, `"total_patterns": 1`) {
		t.Errorf("expected one pattern in insights:\n%s", text)
	}
}
