package store

// Message roles. Only user and assistant turns are ever persisted; tool
// traffic stays in-memory for the duration of a single request.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession is a single conversation thread, owned by exactly one user.
type ChatSession struct {
	ID        int32
	UID       string
	CreatorID string
	Title     string
	CreatedTs int64
	UpdatedTs int64
}

// ChatMessage is a single turn within a session.
type ChatMessage struct {
	ID        int32
	SessionID int32
	Role      string // RoleUser | RoleAssistant
	Content   string
	CreatedTs int64
}

// FindChatSession filters session lookups. CreatorID must be set on every
// caller path that acts on behalf of a user: ownership scoping happens in
// the query, not after the fact.
type FindChatSession struct {
	UID       *string
	CreatorID *string
}

// UpdateChatSession carries the mutable fields of a session.
type UpdateChatSession struct {
	UID       string
	CreatorID string
	Title     *string
}

// FindChatMessage filters message lookups.
type FindChatMessage struct {
	SessionID int32
}

// CreateChatMessage is the payload for appending a turn.
type CreateChatMessage struct {
	SessionID int32
	Role      string
	Content   string
}
