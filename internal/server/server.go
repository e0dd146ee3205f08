// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools that depend on abstractions. No business
// logic lives here — only wiring.
package server

import (
	"log"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/HendryAvila/johny/internal/profile"
	"github.com/HendryAvila/johny/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
// This is the single place where all dependencies are resolved.
//
// The returned cleanup function closes the profile store's database
// connection and must be called on shutdown (typically via defer).
// It is always non-nil and safe to call even if persistence init failed.
func New() (*server.MCPServer, func(), error) {
	// Persistence is an independent subsystem: if it fails to initialize,
	// the engine runs with style defaults and no learning. We log a warning
	// and keep serving — augmentation never depends on the database.
	cleanup := noop
	var engineStore engine.Store
	store, err := profile.New(profile.DefaultConfig())
	if err != nil {
		log.Printf("WARNING: persistence disabled: %v", err)
	} else {
		engineStore = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				log.Printf("WARNING: profile store close: %v", err)
			}
		}
	}

	eng := engine.New(engineStore)

	s := server.NewMCPServer(
		"johny",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Augmentation pipeline ---

	augmentTool := tools.NewAugmentTool(eng)
	s.AddTool(augmentTool.Definition(), augmentTool.Handle)

	analyzeTool := tools.NewAnalyzeTool(eng)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	relevanceTool := tools.NewRelevanceTool(eng)
	s.AddTool(relevanceTool.Definition(), relevanceTool.Handle)

	// --- Threshold adaptation ---

	thresholdTool := tools.NewThresholdTool(eng)
	s.AddTool(thresholdTool.Definition(), thresholdTool.Handle)

	adjustTool := tools.NewAdjustThresholdTool(eng)
	s.AddTool(adjustTool.Definition(), adjustTool.Handle)

	// --- Outcome learning ---

	outcomeTool := tools.NewRecordOutcomeTool(eng)
	s.AddTool(outcomeTool.Definition(), outcomeTool.Handle)

	optimalTool := tools.NewOptimalStrategyTool(eng)
	s.AddTool(optimalTool.Definition(), optimalTool.Handle)

	// --- Insights ---

	thresholdInsights := tools.NewThresholdInsightsTool(eng)
	s.AddTool(thresholdInsights.Definition(), thresholdInsights.Handle)

	learningInsights := tools.NewLearningInsightsTool(eng)
	s.AddTool(learningInsights.Definition(), learningInsights.Handle)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when persistence
// is disabled or hasn't been initialized.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use Johny effectively.
func serverInstructions() string {
	return `You have access to Johny, an adaptive prompt-augmentation MCP server.

Johny scores how relevant each piece of available context is to the user's
current message, filters out the noise, and wraps the message in strategy
and behavioral guidance tuned to the detected task type. Over time it learns
per-user relevance thresholds and per-task-type strategy effectiveness.

## CORE WORKFLOW

1. Before sending a substantial user request to a model, call augment_prompt
   with the raw message, a user_id, and a JSON object of the context you
   have available (conversation_summary, tech_stack, project_structure,
   action_history, user_preferences, best_practices, common_issues,
   workflow_preferences). Use the returned prompt instead of the raw message.
2. After the response is delivered, call record_outcome with the task type
   and strategy from the augmentation (pass include_details=true to see
   them), plus your assessment of feedback and quality in [0, 1].
3. Periodically call adjust_threshold with the user's recent success rate so
   context filtering tightens or loosens to match how they're doing.

## TOOLS

- augment_prompt: full pipeline — classify, select strategy, score and
  filter context, assemble the augmented prompt
- analyze_task: classification only — task type, complexity, urgency,
  technical depth, creativity, recommended strategy
- score_relevance: score a fragment pool against a message without
  assembling a prompt; shows per-fragment reasons
- get_threshold: read (and lazily create) a user's personalized threshold;
  pass recent message history to infer their communication style
- adjust_threshold: feed success signals back into the threshold
- record_outcome / optimal_strategy: teach and query the strategy learner
- threshold_insights / learning_insights: inspect adaptation state

## GUIDELINES

- Context values may be strings, lists, or objects. Empty strings and
  "not available" are treated as no content — omit them or pass them as-is,
  scoring handles both.
- Thresholds live in [0.3, 0.9]. Lower = more context included. Concise
  users get 0.7, comprehensive users 0.5 by default.
- Adjustments are debounced: at most one per 10 minutes per user, and only
  when the change exceeds 0.05. Calling adjust_threshold more often is
  harmless — it just reports no adjustment.
- Essential context (user_preferences, tech_stack) is always included even
  when it scores below threshold. Don't fight this by raising thresholds;
  trim the fragment content instead.`
}
