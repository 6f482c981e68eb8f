package rag

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/arcanaworks/grimoire/server/auth"
	"github.com/arcanaworks/grimoire/store"
)

// ErrEmptyQuestion rejects blank input before any backend call.
var ErrEmptyQuestion = errors.New("question must not be empty")

// defaultSessionTitle matches the title new sessions are created with;
// the first question replaces it.
const defaultSessionTitle = "New Chat"

// AnswerRequest is one question plus its caller context. A nil User is
// treated as anonymous: the question is still answered, but no session is
// resolved and nothing is persisted.
type AnswerRequest struct {
	Question   string
	SessionUID string // optional; empty means no history and no persistence
	User       *auth.UserContext
}

// Pipeline composes the gate, the synthesis engine and the conversation
// store into the single answer operation.
type Pipeline struct {
	gate   *IntentGate
	engine *Engine
	store  *store.Store
}

// NewPipeline wires the pipeline. store may be nil (no persistence at all).
func NewPipeline(gate *IntentGate, engine *Engine, st *store.Store) *Pipeline {
	return &Pipeline{gate: gate, engine: engine, store: st}
}

// Answer runs one request end to end, streaming fragments through emit.
//
// Failure policy: an inadmissible question emits the fixed deflection
// sentence and succeeds. A generation failure before the first fragment is
// returned as an error; after the first fragment the emitted prefix stands
// as the answer and is persisted even when the client has disconnected.
// Persistence failures after a delivered answer are logged, never surfaced.
func (p *Pipeline) Answer(ctx context.Context, req AnswerRequest, emit EmitFunc) error {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return ErrEmptyQuestion
	}

	if !p.gate.Classify(ctx, question) {
		slog.Info("question rejected by intent gate")
		return emit(DeflectionMessage)
	}

	ownerID := ""
	if req.User != nil {
		ownerID = req.User.ID
	}
	conv := LoadConversation(ctx, p.store, req.SessionUID, ownerID)
	history := conv.History(ctx)

	// The user turn goes in before generation so a crash mid-stream still
	// leaves the question on record. Persistence is best-effort here.
	if err := conv.AppendUser(ctx, question); err != nil {
		slog.Warn("failed to persist user turn", "err", err)
	}
	// Persistence after this point must survive the request context: a
	// client disconnect cancels ctx mid-stream, and the partial exchange
	// still has to land in the session.
	persistCtx := context.WithoutCancel(ctx)

	if conv.Persists() && len(history) == 0 && conv.Session().Title == defaultSessionTitle {
		p.titleSession(persistCtx, conv.Session(), ownerID, question)
	}

	fragments := 0
	answer, genErr := p.engine.Generate(ctx, BuildMessages(history, question), func(fragment string) error {
		fragments++
		return emit(fragment)
	})

	if genErr != nil {
		if fragments == 0 {
			return errors.Wrap(genErr, "generation failed")
		}
		// The delivered prefix stands as the answer.
		slog.Warn("generation truncated mid-stream", "fragments", fragments, "err", genErr)
	}

	if fragments > 0 && answer != "" {
		if err := conv.AppendAssistant(persistCtx, answer); err != nil {
			slog.Warn("failed to persist assistant turn", "err", err)
		}
	}
	return nil
}

// titleSession names an untitled session after its first question.
func (p *Pipeline) titleSession(ctx context.Context, sess *store.ChatSession, ownerID, question string) {
	title := truncateTitle(question, 60)
	if _, err := p.store.UpdateChatSession(ctx, &store.UpdateChatSession{
		UID:       sess.UID,
		CreatorID: ownerID,
		Title:     &title,
	}); err != nil {
		slog.Warn("failed to title session", "session", sess.UID, "err", err)
	}
}

func truncateTitle(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
