// Package memory persists rolling conversation history and long-lived
// user profiles. Conversations are bounded (last 20 messages) and expire
// an hour after the last write; profiles are kept until explicitly erased.
package memory

import (
	"context"
	"time"
)

// Message roles stored in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryWindow is the maximum number of messages retained per conversation.
const HistoryWindow = 20

// ConversationTTL is how long a conversation survives after its last write.
const ConversationTTL = time.Hour

// StoredMessage is one entry in a conversation's rolling history.
// Handle is set only for user messages in group chats, so turns can be
// attributed when several people share one context window.
type StoredMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Handle  string `json:"handle,omitempty"`
}

// UserProfile holds what the assistant has learned about a person.
// Facts are free text, deduplicated by exact match, insertion order kept.
type UserProfile struct {
	Handle    string    `json:"handle"`
	Name      string    `json:"name,omitempty"`
	Facts     []string  `json:"facts,omitempty"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Store is the persistence contract used by the orchestrator, the triage
// classifier and the dispatcher. Implementations must make reads degrade
// to empty results and report write outcomes honestly: SetName and AddFact
// return false when nothing actually changed.
type Store interface {
	// History returns the conversation's messages in order, oldest first.
	// An expired or unknown conversation reads as empty.
	History(ctx context.Context, chatID string) ([]StoredMessage, error)

	// AppendMessage adds a message to the conversation, trimming to the
	// last HistoryWindow entries and refreshing the expiry.
	AppendMessage(ctx context.Context, chatID, role, content, handle string) error

	// ClearHistory removes the conversation entirely.
	ClearHistory(ctx context.Context, chatID string) error

	// Profile returns the profile for a handle, or nil if none exists.
	Profile(ctx context.Context, handle string) (*UserProfile, error)

	// SetName records the person's name. Returns false if the name is
	// already set to the same value (no write performed).
	SetName(ctx context.Context, handle, name string) (bool, error)

	// AddFact records a fact about the person. Returns false if the exact
	// fact is already known (no write performed).
	AddFact(ctx context.Context, handle, fact string) (bool, error)

	// ClearProfile erases everything known about a handle.
	ClearProfile(ctx context.Context, handle string) (bool, error)

	Close() error
}
