// Package agent implements the turn orchestrator: it assembles a single
// provider request from multi-modal input, rolling history and user
// profile, interprets the model's mixed text/tool output, and resolves
// it into one ordered action plan with consistent memory writes.
package agent

import (
	"context"

	"github.com/linq-team/bluebridge/internal/anthropic"
	"github.com/linq-team/bluebridge/internal/linq"
	"github.com/linq-team/bluebridge/internal/memory"
)

// Turn is one inbound message and everything known about its context.
type Turn struct {
	ChatID    string
	Sender    string // handle of the originating participant
	MessageID string
	Text      string
	Images    []linq.Attachment
	Audio     []linq.Attachment
	Effect    *linq.Effect // effect the sender attached, if any
	IsReply   bool         // inbound message was itself a reply
	Service   linq.Service
	Chat      linq.ChatInfo
	Profile   *memory.UserProfile // sender's profile, nil if unknown
}

// IsGroup reports whether the turn happened in a group conversation.
func (t Turn) IsGroup() bool {
	return t.Chat.IsGroup()
}

// Remembered describes a profile write that actually changed something.
type Remembered struct {
	Name      string
	Fact      string
	ForSender bool
}

// Plan is the resolved set of side effects for one turn. Text is the
// outgoing message (possibly containing the multi-message delimiter);
// everything else is optional and supplementary to it.
type Plan struct {
	Text        string
	Reaction    *linq.Reaction
	Effect      *linq.Effect
	Rename      string
	Remembered  *Remembered
	ImagePrompt string
	IconPrompt  string
}

// Empty reports whether the plan carries no observable action at all.
func (p Plan) Empty() bool {
	return p.Text == "" && p.Reaction == nil && p.Effect == nil &&
		p.Rename == "" && p.ImagePrompt == "" && p.IconPrompt == ""
}

// Provider is the language-model interface the orchestrator depends on.
type Provider interface {
	Messages(ctx context.Context, req anthropic.MessagesRequest) (*anthropic.MessagesResponse, error)
	Complete(ctx context.Context, model, system, prompt string, maxTokens int) (string, error)
}

// Transcriber converts a hosted audio resource into text.
type Transcriber interface {
	Transcribe(ctx context.Context, url string) (string, error)
}

// Config selects the models the orchestrator calls.
type Config struct {
	Model      string // main conversational model
	QuickModel string // filler text and triage
	MaxTokens  int
}

// Delimiter splits one model response into separate outgoing messages.
const Delimiter = "---"
