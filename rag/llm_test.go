package rag

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
)

// modelStep scripts one GenerateContent call of the fake backend.
type modelStep struct {
	resp *llms.ContentResponse
	err  error
	// stream delivers the choice content through the streaming func in two
	// chunks before returning, the way real providers do.
	stream bool
}

type fakeModel struct {
	mu    sync.Mutex
	steps []modelStep
	calls [][]llms.MessageContent
}

func textStep(content string) modelStep {
	return modelStep{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}}
}

func streamedStep(content string) modelStep {
	s := textStep(content)
	s.stream = true
	return s
}

func toolStep(calls ...llms.ToolCall) modelStep {
	return modelStep{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{ToolCalls: calls}},
	}}
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	if len(m.steps) == 0 {
		m.mu.Unlock()
		return nil, errors.New("fake model: no scripted steps left")
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	m.mu.Unlock()

	if step.err != nil {
		return nil, step.err
	}
	if step.stream {
		opts := llms.CallOptions{}
		for _, opt := range options {
			opt(&opts)
		}
		if opts.StreamingFunc != nil {
			content := step.resp.Choices[0].Content
			half := len(content) / 2
			for _, chunk := range []string{content[:half], content[half:]} {
				if chunk == "" {
					continue
				}
				if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
					return nil, err
				}
			}
		}
	}
	return step.resp, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *fakeModel) lastCall() []llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// fakeSource is a scriptable evidence source.
type fakeSource struct {
	kind   SourceKind
	result *EvidenceResult
	err    error

	mu      sync.Mutex
	queries []string
}

func (s *fakeSource) Kind() SourceKind { return s.kind }

func (s *fakeSource) Fetch(_ context.Context, query string) (*EvidenceResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &EvidenceResult{Kind: s.kind}, nil
}

func (s *fakeSource) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}
