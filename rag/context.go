package rag

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"

	"github.com/arcanaworks/grimoire/store"
)

// Conversation binds one request to its (possibly absent) stored session.
// With no session, history is empty and nothing is persisted.
type Conversation struct {
	store   *store.Store
	session *store.ChatSession
}

// LoadConversation resolves sessionUID for ownerID. A missing session, a
// session owned by someone else, or a store failure all degrade to a
// conversation without persistence: history is best-effort by design.
func LoadConversation(ctx context.Context, st *store.Store, sessionUID, ownerID string) *Conversation {
	if st == nil || sessionUID == "" {
		return &Conversation{}
	}
	sess, err := st.GetChatSession(ctx, &store.FindChatSession{
		UID:       &sessionUID,
		CreatorID: &ownerID,
	})
	if err != nil {
		slog.Warn("session lookup failed, continuing without history", "session", sessionUID, "err", err)
		return &Conversation{}
	}
	if sess == nil {
		return &Conversation{}
	}
	return &Conversation{store: st, session: sess}
}

// Persists reports whether turns of this conversation are stored.
func (c *Conversation) Persists() bool {
	return c.session != nil
}

// Session returns the bound session, or nil.
func (c *Conversation) Session() *store.ChatSession {
	return c.session
}

// History loads the stored turns as the backend's alternating message
// structure. Load failures degrade to empty history.
func (c *Conversation) History(ctx context.Context) []llms.MessageContent {
	if c.session == nil {
		return nil
	}
	msgs, err := c.store.ListChatMessages(ctx, &store.FindChatMessage{SessionID: c.session.ID})
	if err != nil {
		slog.Warn("history load failed, continuing without it", "session", c.session.UID, "err", err)
		return nil
	}
	var history []llms.MessageContent
	for _, m := range msgs {
		switch m.Role {
		case store.RoleUser:
			history = append(history, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case store.RoleAssistant:
			history = append(history, llms.TextParts(llms.ChatMessageTypeAI, m.Content))
		}
	}
	return history
}

// AppendUser persists the user's turn. Called before generation starts.
func (c *Conversation) AppendUser(ctx context.Context, content string) error {
	return c.append(ctx, store.RoleUser, content)
}

// AppendAssistant persists the generated turn. Callers only invoke this
// when at least one fragment was produced; an empty content is dropped so
// erroring generations never leave blank replies in history.
func (c *Conversation) AppendAssistant(ctx context.Context, content string) error {
	if content == "" {
		return nil
	}
	return c.append(ctx, store.RoleAssistant, content)
}

func (c *Conversation) append(ctx context.Context, role, content string) error {
	if c.session == nil {
		return nil
	}
	_, err := c.store.CreateChatMessage(ctx, &store.CreateChatMessage{
		SessionID: c.session.ID,
		Role:      role,
		Content:   content,
	})
	return err
}
