package rag

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func collectFragments(fragments *[]string) EmitFunc {
	return func(fragment string) error {
		*fragments = append(*fragments, fragment)
		return nil
	}
}

func TestEngineStreamsFinalAnswer(t *testing.T) {
	model := &fakeModel{steps: []modelStep{streamedStep("Fireball deals 8d6 fire damage.")}}
	engine := NewEngine(model, newTestAggregator(&fakeSource{kind: SourceSemantic}, &fakeSource{kind: SourceWeb}))

	var fragments []string
	answer, err := engine.Generate(context.Background(),
		BuildMessages(nil, "How much damage does Fireball deal?"),
		collectFragments(&fragments))

	require.NoError(t, err)
	require.Equal(t, "Fireball deals 8d6 fire damage.", answer)
	require.Greater(t, len(fragments), 1)
	require.Equal(t, answer, strings.Join(fragments, ""))
}

func TestEngineEmitsUnstreamedFinalAnswerOnce(t *testing.T) {
	model := &fakeModel{steps: []modelStep{textStep("Counterspell is a 3rd-level spell.")}}
	engine := NewEngine(model, newTestAggregator(&fakeSource{kind: SourceSemantic}, &fakeSource{kind: SourceWeb}))

	var fragments []string
	answer, err := engine.Generate(context.Background(),
		BuildMessages(nil, "What level is Counterspell?"),
		collectFragments(&fragments))

	require.NoError(t, err)
	require.Equal(t, []string{"Counterspell is a 3rd-level spell."}, fragments)
	require.Equal(t, answer, fragments[0])
}

func TestEngineRunsToolRoundsBeforeAnswering(t *testing.T) {
	semantic := &fakeSource{
		kind: SourceSemantic,
		result: &EvidenceResult{
			Kind:  SourceSemantic,
			Items: []EvidenceItem{{Text: "Sneak Attack: once per turn extra damage.", Locator: "phb.md-3", Rank: 1}},
		},
	}
	web := &fakeSource{
		kind: SourceWeb,
		result: &EvidenceResult{
			Kind:  SourceWeb,
			Items: []EvidenceItem{{Text: "Community agrees: once per turn, not per round.", Locator: "https://example.com/sneak", Rank: 1}},
		},
	}
	model := &fakeModel{steps: []modelStep{
		toolStep(
			llms.ToolCall{ID: "c1", FunctionCall: &llms.FunctionCall{Name: ToolWebSearch, Arguments: `{"query": "sneak attack per turn"}`}},
			llms.ToolCall{ID: "c2", FunctionCall: &llms.FunctionCall{Name: ToolRetrieve, Arguments: `{"query": "sneak attack"}`}},
		),
		streamedStep("Sneak Attack applies once per turn."),
	}}
	engine := NewEngine(model, newTestAggregator(semantic, web))

	var fragments []string
	answer, err := engine.Generate(context.Background(),
		BuildMessages(nil, "How often does Sneak Attack apply?"),
		collectFragments(&fragments))

	require.NoError(t, err)
	require.Equal(t, "Sneak Attack applies once per turn.", answer)
	require.Equal(t, 1, semantic.queryCount())
	require.Equal(t, 1, web.queryCount())

	// The second round must see the assistant tool-call turn plus one tool
	// result per call appended to the context.
	last := model.lastCall()
	require.Len(t, last, 5) // system, question, assistant, two tool results
	require.Equal(t, llms.ChatMessageTypeTool, last[len(last)-1].Role)
	require.Equal(t, llms.ChatMessageTypeTool, last[len(last)-2].Role)
	require.Equal(t, llms.ChatMessageTypeAI, last[len(last)-3].Role)
}

func TestEngineToolBudgetExhausted(t *testing.T) {
	steps := make([]modelStep, 0, maxAgentRounds)
	for i := 0; i < maxAgentRounds; i++ {
		steps = append(steps, toolStep(
			llms.ToolCall{ID: "loop", FunctionCall: &llms.FunctionCall{Name: ToolRetrieve, Arguments: `{"query": "again"}`}},
		))
	}
	model := &fakeModel{steps: steps}
	engine := NewEngine(model, newTestAggregator(&fakeSource{kind: SourceSemantic}, &fakeSource{kind: SourceWeb}))

	_, err := engine.Generate(context.Background(), BuildMessages(nil, "q"), collectFragments(new([]string)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "budget exhausted")
	require.Equal(t, maxAgentRounds, model.callCount())
}

func TestEngineBackendErrorKeepsEmittedPrefix(t *testing.T) {
	model := &fakeModel{steps: []modelStep{
		toolStep(llms.ToolCall{ID: "c1", FunctionCall: &llms.FunctionCall{Name: ToolRetrieve, Arguments: `{"query": "x"}`}}),
		{err: errors.New("upstream 500")},
	}}
	engine := NewEngine(model, newTestAggregator(&fakeSource{kind: SourceSemantic}, &fakeSource{kind: SourceWeb}))

	var fragments []string
	answer, err := engine.Generate(context.Background(), BuildMessages(nil, "q"), collectFragments(&fragments))
	require.Error(t, err)
	require.Empty(t, answer)
	require.Empty(t, fragments)
}

func TestEngineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := &fakeModel{steps: []modelStep{
		toolStep(llms.ToolCall{ID: "c1", FunctionCall: &llms.FunctionCall{Name: ToolRetrieve, Arguments: `{"query": "x"}`}}),
		streamedStep("never reached"),
	}}
	slow := &fakeSource{kind: SourceSemantic}
	engine := NewEngine(model, NewAggregator(slow, &fakeSource{kind: SourceWeb}, time.Second))

	cancel()
	_, err := engine.Generate(ctx, BuildMessages(nil, "q"), collectFragments(new([]string)))
	require.Error(t, err)
}

func TestBuildMessages(t *testing.T) {
	history := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "earlier question"),
		llms.TextParts(llms.ChatMessageTypeAI, "earlier answer"),
	}
	messages := BuildMessages(history, "new question")

	require.Len(t, messages, 4)
	require.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
	require.Equal(t, llms.ChatMessageTypeHuman, messages[1].Role)
	require.Equal(t, llms.ChatMessageTypeAI, messages[2].Role)
	require.Equal(t, llms.ChatMessageTypeHuman, messages[3].Role)
}
