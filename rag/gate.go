package rag

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const defaultGateTimeout = 15 * time.Second

// IntentGate decides whether a question is admissible before any expensive
// work runs. It fails closed: a backend error or malformed decision is
// treated exactly like a negative classification.
type IntentGate struct {
	model   llms.Model
	timeout time.Duration
}

// NewIntentGate creates a gate backed by the given model.
func NewIntentGate(model llms.Model) *IntentGate {
	return &IntentGate{model: model, timeout: defaultGateTimeout}
}

// Classify returns true when the question is in-domain and appropriate.
func (g *IntentGate) Classify(ctx context.Context, question string) bool {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, intentSystemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, question),
		},
		llms.WithJSONMode(),
		llms.WithTemperature(0),
	)
	if err != nil {
		slog.Warn("intent gate call failed, rejecting", "err", err)
		return false
	}
	if len(resp.Choices) == 0 {
		slog.Warn("intent gate returned no choices, rejecting")
		return false
	}

	var decision struct {
		Admissible bool `json:"admissible"`
	}
	raw := strings.TrimSpace(resp.Choices[0].Content)
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		slog.Warn("intent gate returned malformed decision, rejecting", "raw", raw)
		return false
	}
	return decision.Admissible
}
