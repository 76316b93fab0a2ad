package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linq-team/bluebridge/internal/anthropic"
	"github.com/linq-team/bluebridge/internal/memory"
)

// Engine is the turn orchestrator.
type Engine struct {
	provider    Provider
	store       memory.Store
	transcriber Transcriber
	cfg         Config
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger for the engine.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates a turn orchestrator.
func New(provider Provider, store memory.Store, transcriber Transcriber, cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		provider:    provider,
		store:       store,
		transcriber: transcriber,
		cfg:         cfg,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Control command responses.
const (
	helpText   = "commands:\n/clear - reset our conversation\n/forget me - erase what i know about you\n/help - this message"
	clearText  = "conversation cleared, fresh start 🧹"
	forgetText = "done, i've forgotten everything about you. we're strangers now 👋"
	noIDText   = "hmm couldn't figure out who you are to forget you"
)

// Respond runs one full turn: control commands, input composition,
// the provider call, tool folding, memory writes and the post-processing
// guarantees (an effect or rename never ships without text).
//
// A provider failure on the main call is fatal for the turn and is
// returned to the caller; everything else degrades.
func (e *Engine) Respond(ctx context.Context, turn Turn) (Plan, error) {
	if plan, handled := e.handleCommand(ctx, turn); handled {
		return plan, nil
	}

	text := e.composeUserText(ctx, turn)

	// Prior history is fetched before this turn's text is appended so the
	// new message appears exactly once in the provider request.
	history, err := e.store.History(ctx, turn.ChatID)
	if err != nil {
		e.logger.Warn("history read failed, continuing without context", "chat_id", turn.ChatID, "error", err)
		history = nil
	}

	if text != "" {
		handle := ""
		if turn.IsGroup() {
			handle = turn.Sender
		}
		if err := e.store.AppendMessage(ctx, turn.ChatID, memory.RoleUser, text, handle); err != nil {
			e.logger.Warn("user message write failed", "chat_id", turn.ChatID, "error", err)
		}
	}

	messages := replayHistory(history, turn.IsGroup())
	messages = append(messages, userMessage(turn, text))

	resp, err := e.provider.Messages(ctx, anthropic.MessagesRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    systemPrompt(turn),
		Tools:     toolset(turn),
		Messages:  messages,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("provider call: %w", err)
	}

	plan := e.fold(ctx, turn, resp)
	e.writeAssistantTurn(ctx, turn.ChatID, plan)
	e.ensureTextForActions(ctx, turn, &plan)

	return plan, nil
}

// handleCommand resolves the text-level control surface. Commands bypass
// the provider and the history write entirely.
func (e *Engine) handleCommand(ctx context.Context, turn Turn) (Plan, bool) {
	cmd := strings.ToLower(strings.TrimSpace(turn.Text))
	switch cmd {
	case "/help":
		return Plan{Text: helpText}, true
	case "/clear":
		if err := e.store.ClearHistory(ctx, turn.ChatID); err != nil {
			e.logger.Warn("clear history failed", "chat_id", turn.ChatID, "error", err)
		}
		return Plan{Text: clearText}, true
	case "/forget me", "/forgetme":
		if turn.Sender == "" {
			return Plan{Text: noIDText}, true
		}
		if _, err := e.store.ClearProfile(ctx, turn.Sender); err != nil {
			e.logger.Warn("clear profile failed", "handle", turn.Sender, "error", err)
		}
		return Plan{Text: forgetText}, true
	}
	return Plan{}, false
}

// composeUserText folds voice transcripts and media defaults into the
// text that goes to the model and into history. Transcription failures
// are surfaced to the model, never to the caller.
func (e *Engine) composeUserText(ctx context.Context, turn Turn) string {
	var transcripts []string
	failed := false
	for _, clip := range turn.Audio {
		transcript, err := e.transcriber.Transcribe(ctx, clip.URL)
		if err != nil {
			e.logger.Warn("transcription failed", "url", clip.URL, "error", err)
			failed = true
			continue
		}
		transcripts = append(transcripts, transcript)
	}

	text := strings.TrimSpace(turn.Text)

	switch {
	case len(transcripts) > 0:
		joined := strings.Join(transcripts, "\n")
		if text != "" {
			return fmt.Sprintf("[Voice memo transcript: %q]\n\n%s", joined, text)
		}
		return fmt.Sprintf("[Voice memo transcript: %q]\n\nRespond naturally to what they said in the voice memo.", joined)
	case len(turn.Audio) > 0 && failed && text == "":
		return "[Someone sent a voice memo but transcription failed. Let them know you couldn't hear it and ask them to try again or type their message.]"
	case text == "" && len(turn.Images) > 0:
		return "What's in this image?"
	}
	return text
}

// replayHistory converts stored messages to provider format. In group
// chats, user turns get a leading attribution tag so the model can tell
// speakers apart inside one shared window.
func replayHistory(history []memory.StoredMessage, isGroup bool) []anthropic.Message {
	messages := make([]anthropic.Message, 0, len(history)+1)
	for _, msg := range history {
		content := msg.Content
		if isGroup && msg.Role == memory.RoleUser && msg.Handle != "" {
			content = fmt.Sprintf("[%s]: %s", msg.Handle, content)
		}
		messages = append(messages, anthropic.Message{
			Role:    msg.Role,
			Content: []anthropic.ContentBlock{anthropic.TextBlock(content)},
		})
	}
	return messages
}

// userMessage builds the new turn's content: images first, then text.
func userMessage(turn Turn, text string) anthropic.Message {
	var blocks []anthropic.ContentBlock
	for _, img := range turn.Images {
		blocks = append(blocks, anthropic.ImageBlock(img.URL))
	}
	if text != "" {
		blocks = append(blocks, anthropic.TextBlock(text))
	}
	return anthropic.Message{Role: anthropic.RoleUser, Content: blocks}
}

// writeAssistantTurn records what this turn produced. Text is stored
// flattened across the message delimiter; with no text, a system-style
// marker records the effect or reaction so future turns can see what
// already happened and avoid looping.
func (e *Engine) writeAssistantTurn(ctx context.Context, chatID string, plan Plan) {
	var entry string
	switch {
	case plan.Text != "":
		entry = flattenSegments(plan.Text)
	case plan.Effect != nil:
		entry = fmt.Sprintf("[sent %s effect]", plan.Effect.Name)
	case plan.Reaction != nil:
		entry = fmt.Sprintf("[reacted with %s]", plan.Reaction.Display())
	default:
		return
	}
	if err := e.store.AppendMessage(ctx, chatID, memory.RoleAssistant, entry, ""); err != nil {
		e.logger.Warn("assistant message write failed", "chat_id", chatID, "error", err)
	}
}

// flattenSegments joins delimiter-split segments back into one line for
// storage; history keeps one entry per turn, not per outgoing message.
func flattenSegments(text string) string {
	parts := strings.Split(text, Delimiter)
	kept := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

// ensureTextForActions enforces that an effect or rename never ships
// silently: a mute effect gets a short filler line from the quick model,
// a mute rename gets a canned acknowledgment. Remember-only turns stay
// silent when nothing actually changed.
func (e *Engine) ensureTextForActions(ctx context.Context, turn Turn, plan *Plan) {
	if plan.Text == "" && plan.Effect != nil {
		plan.Text = e.effectFiller(ctx, plan.Effect.Name)
	}
	if plan.Text == "" && plan.Rename != "" && turn.IsGroup() {
		plan.Text = fmt.Sprintf("renamed the chat to %q 😎", plan.Rename)
	}
}

// effectFiller asks the quick model for a short line to carry the effect.
func (e *Engine) effectFiller(ctx context.Context, effectName string) string {
	prompt := fmt.Sprintf("Write a very short, fun message (under 10 words) to send with a %s iMessage effect. Just the message, nothing else.", effectName)
	text, err := e.provider.Complete(ctx, e.cfg.QuickModel, "", prompt, 100)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			e.logger.Warn("effect filler call failed", "effect", effectName, "error", err)
		}
		return fmt.Sprintf("✨ %s! ✨", effectName)
	}
	return strings.TrimSpace(text)
}
