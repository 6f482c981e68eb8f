package store

import "context"

// CreateChatSession creates a new conversation thread.
func (s *Store) CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error) {
	return s.driver.CreateChatSession(ctx, create)
}

// ListChatSessions lists sessions matching the given filter, most recently
// updated first.
func (s *Store) ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error) {
	return s.driver.ListChatSessions(ctx, find)
}

// GetChatSession returns the first session matching the given filter, or nil
// when nothing matches. A mismatched creator and a missing session are
// indistinguishable to the caller.
func (s *Store) GetChatSession(ctx context.Context, find *FindChatSession) (*ChatSession, error) {
	return s.driver.GetChatSession(ctx, find)
}

// UpdateChatSession updates a session's mutable fields. Returns nil when the
// (uid, creator) pair matches nothing.
func (s *Store) UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error) {
	return s.driver.UpdateChatSession(ctx, update)
}

// DeleteChatSession deletes a session and all its messages (cascade). The
// bool reports whether a row owned by creatorID was actually deleted.
func (s *Store) DeleteChatSession(ctx context.Context, uid string, creatorID string) (bool, error) {
	return s.driver.DeleteChatSession(ctx, uid, creatorID)
}

// CreateChatMessage appends a turn to a session and bumps its updated_ts.
func (s *Store) CreateChatMessage(ctx context.Context, create *CreateChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

// ListChatMessages returns all turns for a session, oldest first.
func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

// DeleteChatMessages removes every turn of the given session.
func (s *Store) DeleteChatMessages(ctx context.Context, sessionID int32) error {
	return s.driver.DeleteChatMessages(ctx, sessionID)
}
