package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// Tool names exposed to the generation backend.
const (
	ToolRetrieve  = "retrieve"
	ToolWebSearch = "web_search"
)

const defaultSourceTimeout = 30 * time.Second

// Aggregator bridges the evidence sources to the backend's tool-call
// protocol. The dispatch table is fixed at construction; the backend decides
// when and how often each tool runs.
type Aggregator struct {
	registry    map[string]tools.Tool
	definitions []llms.Tool
	timeout     time.Duration
}

// NewAggregator builds the dispatch table for the two evidence sources.
// timeout bounds each individual source invocation; <= 0 uses the default.
func NewAggregator(semantic, web EvidenceSource, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	registry := map[string]tools.Tool{
		ToolRetrieve: &sourceTool{
			name:        ToolRetrieve,
			description: "Search the local D&D 5e rulebook index for authoritative passages. Input is the search query.",
			source:      semantic,
		},
		ToolWebSearch: &sourceTool{
			name:        ToolWebSearch,
			description: "Search the web for community rulings, errata and recent discussion. Input is the search query.",
			source:      web,
		},
	}
	a := &Aggregator{registry: registry, timeout: timeout}
	for _, name := range []string{ToolRetrieve, ToolWebSearch} {
		a.definitions = append(a.definitions, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        name,
				Description: registry[name].Description(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "The search query",
						},
					},
					"required": []string{"query"},
				},
			},
		})
	}
	return a
}

// Definitions returns the tool schemas sent to the model.
func (a *Aggregator) Definitions() []llms.Tool {
	return a.definitions
}

// Dispatch runs one tool call under the per-source timeout and serializes
// the outcome into the tool-result slot. Failures become descriptive text,
// never errors: a dead source must not abort the turn.
func (a *Aggregator) Dispatch(ctx context.Context, toolName, rawArgs string) string {
	tool, ok := a.registry[toolName]
	if !ok {
		return "Unknown tool: " + toolName
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	slog.Info("[AGENT TOOL CALL]", "tool", toolName, "input", rawArgs)
	out, err := tool.Call(ctx, rawArgs)
	if err != nil {
		slog.Warn("tool call failed", "tool", toolName, "err", err)
		return fmt.Sprintf("The %s source is currently unavailable (%v). Answer from the other source and mention this.", toolName, err)
	}
	return out
}

// DispatchAll runs a batch of independent tool calls concurrently and
// returns their results in call order. Duplicate call IDs (some models
// repeat them within one response) are answered once.
func (a *Aggregator) DispatchAll(ctx context.Context, calls []llms.ToolCall) []llms.ToolCallResponse {
	seen := make(map[string]bool, len(calls))
	unique := make([]llms.ToolCall, 0, len(calls))
	for _, call := range calls {
		if call.ID != "" && seen[call.ID] {
			continue
		}
		seen[call.ID] = true
		unique = append(unique, call)
	}

	responses := make([]llms.ToolCallResponse, len(unique))
	var wg sync.WaitGroup
	for i, call := range unique {
		wg.Add(1)
		go func(i int, call llms.ToolCall) {
			defer wg.Done()
			responses[i] = llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       call.FunctionCall.Name,
				Content:    a.Dispatch(ctx, call.FunctionCall.Name, call.FunctionCall.Arguments),
			}
		}(i, call)
	}
	wg.Wait()
	return responses
}

// sourceTool adapts an EvidenceSource to the langchaingo tool interface.
type sourceTool struct {
	name        string
	description string
	source      EvidenceSource
}

func (t *sourceTool) Name() string        { return t.name }
func (t *sourceTool) Description() string { return t.description }

func (t *sourceTool) Call(ctx context.Context, input string) (string, error) {
	query := parseQuery(input)
	if query == "" {
		return "The query argument was empty.", nil
	}
	result, err := t.source.Fetch(ctx, query)
	if err != nil {
		return "", err
	}
	return result.Render(), nil
}

// parseQuery accepts the {"query": ...} argument object; models that send
// the bare string instead get it passed through.
func parseQuery(input string) string {
	var args struct {
		Query string `json:"query"`
	}
	trimmed := strings.TrimSpace(input)
	if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
		return strings.TrimSpace(args.Query)
	}
	return strings.Trim(trimmed, `"`)
}
