package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/crystaldolphin/pantrychef/internal/schema"
	"github.com/crystaldolphin/pantrychef/internal/shared/llmutils"
	"github.com/crystaldolphin/pantrychef/internal/tools"
)

// LoopRunner executes the LLM ↔ tool iteration loop for one Chef.
type LoopRunner struct {
	provider schema.LLMProvider
	model    string
	settings schema.AgentSettings
}

func newLoopRunner(provider schema.LLMProvider, model string, settings schema.AgentSettings) LoopRunner {
	return LoopRunner{provider: provider, model: model, settings: settings}
}

// run calls the model until it stops requesting tools or MaxIter round trips
// have been made. Every assistant and tool message is appended to
// conversation. It returns the last model text; after a provider error it
// returns the last non-empty text seen instead.
func (r *LoopRunner) run(ctx context.Context, conversation *schema.Messages, tls *tools.ToolList) string {
	var last, best string
	opts := schema.NewChatOptions(r.model, r.settings.MaxTokens, r.settings.Temperature)

	for i := 0; i < r.settings.MaxIter; i++ {
		resp, err := r.provider.Chat(ctx, *conversation, tls.Definitions(), opts)
		if err != nil {
			slog.Error("LLM error", "model", r.model, "iteration", i+1, "err", err)
			return best
		}

		last = llmutils.StripThink(resp.Content)
		if last != "" {
			best = last
		}

		if !resp.HasToolCalls() {
			conversation.AddAssistant(last, nil)
			return last
		}

		slog.Debug("model requested tools", "iteration", i+1, "hint", llmutils.ToolHint(resp.ToolCalls))

		toolCalls := make([]schema.ToolCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			toolCalls = append(toolCalls, schema.ToolCall{ID: tc.Id, Name: tc.Name, Arguments: tc.Arguments})
		}
		conversation.AddAssistant(last, toolCalls)

		// Sequential: a later call may rely on state an earlier one set.
		for _, tc := range resp.ToolCalls {
			conversation.AddToolResult(tc.Id, tc.Name, r.execute(ctx, tls, tc))
		}
	}

	slog.Warn("tool iteration cap reached", "model", r.model, "maxIter", r.settings.MaxIter)
	return last
}

func (r *LoopRunner) execute(ctx context.Context, tls *tools.ToolList, tc schema.ToolCallRequest) string {
	argsJSON, _ := json.Marshal(tc.Arguments)
	slog.Info("Tool call", "name", tc.Name, "args", llmutils.Truncate(string(argsJSON), 200))

	t := tls.Get(tc.Name)
	if t == nil {
		slog.Warn("unknown tool", "name", tc.Name)
		return fmt.Sprintf("Error: Tool '%s' is not implemented.", tc.Name)
	}
	result, err := t.Execute(ctx, tc.Arguments)
	if err != nil {
		slog.Warn("tool failed", "name", tc.Name, "err", err)
		return "Error: " + err.Error()
	}
	return result
}
