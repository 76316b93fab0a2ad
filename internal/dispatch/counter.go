package dispatch

import "sync"

// ContactCardInterval is how often (in messages) the contact card is
// re-shared into a chat, after the very first message.
const ContactCardInterval = 5

// ChatCounter tracks per-chat inbound message counts for contact-card
// cadence. It is explicit state keyed by conversation, not a global.
type ChatCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewChatCounter creates an empty counter.
func NewChatCounter() *ChatCounter {
	return &ChatCounter{counts: make(map[string]int)}
}

// Bump increments and returns the chat's message count.
func (c *ChatCounter) Bump(chatID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[chatID]++
	return c.counts[chatID]
}

// ShouldShareContact reports whether the contact card should accompany
// the nth message: the first one, then every ContactCardInterval-th.
func ShouldShareContact(n int) bool {
	return n == 1 || n%ContactCardInterval == 0
}

// Reset clears all counts.
func (c *ChatCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
}
