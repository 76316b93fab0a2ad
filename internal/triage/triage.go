// Package triage decides how to handle a group chat message before the
// full orchestrator runs: respond with text, acknowledge with a single
// reaction, or stay out of a human-to-human exchange entirely.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linq-team/bluebridge/internal/linq"
	"github.com/linq-team/bluebridge/internal/memory"
)

// Action is the classifier's verdict for a group message.
type Action string

const (
	ActionRespond Action = "respond"
	ActionReact   Action = "react"
	ActionIgnore  Action = "ignore"
)

// contextWindow is how many recent stored messages seed the classifier
// (two exchanges).
const contextWindow = 4

// Completer is the cheap, tool-free model call the classifier rides on.
type Completer interface {
	Complete(ctx context.Context, model, system, prompt string, maxTokens int) (string, error)
}

// Classifier routes group chat messages.
type Classifier struct {
	completer Completer
	store     memory.Store
	model     string
	logger    *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// New creates a group triage classifier using the given quick model.
func New(completer Completer, store memory.Store, model string, opts ...Option) *Classifier {
	c := &Classifier{
		completer: completer,
		store:     store,
		model:     model,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const classifierSystem = `You classify how an AI assistant "Claude" should handle messages in a group chat.

IMPORTANT: BIAS TOWARD "respond" - text responses are almost always better than reactions. Only use "react" for very brief acknowledgments where a text response would be awkward.

Answer with ONE of these:
- "respond" - Claude should send a text reply. USE THIS BY DEFAULT when:
  * They asked Claude anything
  * They mentioned Claude (or misspelled it - cluade, cloude, cladue, claud, etc.)
  * They mentioned "AI", "bot", "assistant", or "Sullivan"
  * They're talking to Claude or continuing a conversation
  * It's a follow-up to Claude's message
  * You're unsure - default to respond
- "react:love" or "react:like" or "react:laugh" - ONLY for brief acknowledgments where text would be weird (like a simple "thanks!" or "lol"). Do NOT overuse reactions.
- "ignore" - Human-to-human conversation not involving Claude at all

ANTI-REACTION-LOOP: If you see reactions in recent context, prefer "respond" to break the pattern. People want conversation, not tapbacks.

MISSPELLING TOLERANCE: People often typo "Claude" as cluade, cloude, cladue, claud, ckaude, etc. Treat these as mentions of Claude and respond!

Examples:
- "hey claude what's the weather" -> respond
- "cluade what do u think" -> respond (misspelling!)
- "cloude help me" -> respond (misspelling!)
- "claude thoughts?" -> respond
- "that's cool claude" -> respond (engage, don't just react!)
- "thanks!" (very brief, nothing to add) -> react:love
- "yo mike you coming tonight?" -> ignore`

// Classify decides how to handle a group message. Classifier failures
// degrade to ignore: a missed group message beats a broken turn.
func (c *Classifier) Classify(ctx context.Context, chatID, sender, message string) (Action, *linq.Reaction) {
	prompt := c.buildPrompt(ctx, chatID, sender, message)

	answer, err := c.completer.Complete(ctx, c.model, classifierSystem, prompt, 20)
	if err != nil {
		c.logger.Warn("triage call failed, ignoring message", "chat_id", chatID, "error", err)
		return ActionIgnore, nil
	}

	action, reaction := parseAnswer(answer)
	c.logger.Debug("group message classified", "chat_id", chatID, "action", string(action))
	return action, reaction
}

func (c *Classifier) buildPrompt(ctx context.Context, chatID, sender, message string) string {
	var contextBlock string

	history, err := c.store.History(ctx, chatID)
	if err != nil {
		c.logger.Warn("triage history read failed", "chat_id", chatID, "error", err)
		history = nil
	}
	if len(history) > contextWindow {
		history = history[len(history)-contextWindow:]
	}

	if len(history) > 0 {
		lines := make([]string, len(history))
		for i, msg := range history {
			if msg.Role == memory.RoleAssistant {
				lines[i] = "Claude: " + msg.Content
			} else {
				who := msg.Handle
				if who == "" {
					who = "Someone"
				}
				lines[i] = who + ": " + msg.Content
			}
		}
		contextBlock = "\nRecent conversation:\n" + strings.Join(lines, "\n") + "\n"
	}

	return fmt.Sprintf("%sNew message from %s: %q\n\nHow should Claude handle this?", contextBlock, sender, message)
}

// parseAnswer maps the model's short answer onto an action. Substring
// matching tolerates whatever wrapping the model adds around the label.
func parseAnswer(answer string) (Action, *linq.Reaction) {
	answer = strings.ToLower(strings.TrimSpace(answer))

	if strings.Contains(answer, "respond") {
		return ActionRespond, nil
	}
	if strings.Contains(answer, "react") {
		reaction := &linq.Reaction{Kind: linq.ReactionLike}
		switch {
		case strings.Contains(answer, "love"):
			reaction.Kind = linq.ReactionLove
		case strings.Contains(answer, "laugh"):
			reaction.Kind = linq.ReactionLaugh
		case strings.Contains(answer, "emphasize"):
			reaction.Kind = linq.ReactionEmphasize
		}
		return ActionReact, reaction
	}
	return ActionIgnore, nil
}
