package rag

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
)

// maxAgentRounds caps the number of tool-use iterations per request.
const maxAgentRounds = 6

// EmitFunc receives text fragments in production order. Returning an error
// cancels the stream (typically: the client disconnected).
type EmitFunc func(fragment string) error

// Engine drives the generation backend through the tool-call protocol and
// turns its incremental output into a cancellable fragment stream.
type Engine struct {
	model     llms.Model
	agg       *Aggregator
	maxRounds int
}

// NewEngine creates an Engine over the given model and tool bridge.
func NewEngine(model llms.Model, agg *Aggregator) *Engine {
	return &Engine{model: model, agg: agg, maxRounds: maxAgentRounds}
}

// Generate runs the agent loop: the model alternates between emitting text
// (forwarded to emit as it streams) and requesting tool calls (dispatched
// through the aggregator, results fed back before the next round). It
// returns the full accumulated answer. On error the already-emitted prefix
// stands; the caller decides whether the error is fatal.
func (e *Engine) Generate(ctx context.Context, messages []llms.MessageContent, emit EmitFunc) (string, error) {
	var full strings.Builder

	for round := 0; round < e.maxRounds; round++ {
		streamedThisRound := false
		resp, err := e.model.GenerateContent(ctx, messages,
			llms.WithTools(e.agg.Definitions()),
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				streamedThisRound = true
				full.Write(chunk)
				return emit(string(chunk))
			}),
		)
		if err != nil {
			return full.String(), errors.Wrap(err, "generation backend")
		}
		if len(resp.Choices) == 0 {
			return full.String(), errors.New("generation backend returned no choices")
		}
		choice := resp.Choices[0]

		// Final answer: no tool calls pending.
		if len(choice.ToolCalls) == 0 {
			// Providers that ignore the streaming func for the final
			// message deliver it whole; forward it once.
			if !streamedThisRound && choice.Content != "" {
				full.WriteString(choice.Content)
				if err := emit(choice.Content); err != nil {
					return full.String(), errors.Wrap(err, "emit final answer")
				}
			}
			slog.Info("[AGENT FINISH]", "rounds", round+1, "chars", full.Len())
			return full.String(), nil
		}

		// Record the assistant's tool-call message, dispatch the calls,
		// and feed the results back into the context.
		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, call := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		messages = append(messages, assistant)

		for _, result := range e.agg.DispatchAll(ctx, choice.ToolCalls) {
			messages = append(messages, llms.MessageContent{
				Role:  llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{result},
			})
		}

		if err := ctx.Err(); err != nil {
			return full.String(), errors.Wrap(err, "generation cancelled")
		}
	}

	return full.String(), errors.Errorf("tool-call budget exhausted after %d rounds", e.maxRounds)
}

// BuildMessages assembles the backend's turn structure: system prompt,
// stored history, then the live question.
func BuildMessages(history []llms.MessageContent, question string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, mainSystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
	return messages
}
