// Package dispatch executes a resolved action plan against the messaging
// transport in a fixed order: reaction, rename, text segments, generated
// image, group icon. Each action is independently best-effort.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/linq-team/bluebridge/internal/agent"
	"github.com/linq-team/bluebridge/internal/linq"
	"github.com/linq-team/bluebridge/internal/memory"
)

// Transport is the messaging platform surface the dispatcher drives.
type Transport interface {
	SendMessage(ctx context.Context, chatID, text string, effect *linq.Effect, replyTo *linq.ReplyTo, attachments []linq.Attachment) error
	SendReaction(ctx context.Context, messageID string, reaction linq.Reaction) error
	MarkRead(ctx context.Context, chatID string) error
	StartTyping(ctx context.Context, chatID string) error
	GetChat(ctx context.Context, chatID string) (linq.ChatInfo, error)
	RenameChat(ctx context.Context, chatID, name string) error
	SetChatIcon(ctx context.Context, chatID, imageURL string) error
	ShareContactCard(ctx context.Context, chatID string) error
}

// ImageGenerator produces an image URL from a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pacing delay bounds between consecutive text segments.
const (
	paceMin = 400 * time.Millisecond
	paceMax = 800 * time.Millisecond

	// imageSendDelay is the small pause before an image message ships.
	imageSendDelay = 300 * time.Millisecond
)

// Failure texts sent when media generation falls through.
const (
	imageFailText = "sorry the image didnt work, try again?"
	iconFailText  = "sorry couldnt set the icon, try again?"
)

// Dispatcher executes action plans.
type Dispatcher struct {
	transport Transport
	images    ImageGenerator
	store     memory.Store
	logger    *slog.Logger
	sleepFn   func(context.Context, time.Duration)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithSleepFunc overrides the pacing sleep (for testing).
func WithSleepFunc(fn func(context.Context, time.Duration)) Option {
	return func(d *Dispatcher) {
		d.sleepFn = fn
	}
}

func defaultSleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// New creates a Dispatcher.
func New(transport Transport, images ImageGenerator, store memory.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport: transport,
		images:    images,
		store:     store,
		logger:    slog.Default(),
		sleepFn:   defaultSleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the plan. Reaction, rename, image and icon failures are
// logged and skipped; a text delivery failure is returned because the
// text response is the turn's primary channel.
func (d *Dispatcher) Run(ctx context.Context, turn agent.Turn, plan agent.Plan) error {
	if plan.Reaction != nil {
		if err := d.transport.SendReaction(ctx, turn.MessageID, *plan.Reaction); err != nil {
			d.logger.Warn("reaction failed", "chat_id", turn.ChatID, "error", err)
		}
	}

	if plan.Rename != "" && turn.IsGroup() {
		if err := d.transport.RenameChat(ctx, turn.ChatID, plan.Rename); err != nil {
			d.logger.Warn("rename failed", "chat_id", turn.ChatID, "error", err)
		}
	}

	if err := d.sendText(ctx, turn, plan); err != nil {
		return err
	}

	if plan.ImagePrompt != "" {
		d.sendGeneratedImage(ctx, turn, plan)
	}

	if plan.IconPrompt != "" && turn.IsGroup() {
		d.setGroupIcon(ctx, turn, plan.IconPrompt)
	}

	return nil
}

// sendText delivers the text segments in order with a short randomized
// pacing delay between them. Only the final segment carries the effect,
// and only when no image follows it; only the first segment threads as a
// reply when the inbound message was itself a reply.
func (d *Dispatcher) sendText(ctx context.Context, turn agent.Turn, plan agent.Plan) error {
	segments := splitSegments(plan.Text)
	if len(segments) == 0 {
		return nil
	}

	var replyTo *linq.ReplyTo
	if turn.IsReply {
		replyTo = &linq.ReplyTo{MessageID: turn.MessageID}
	}

	for i, segment := range segments {
		last := i == len(segments)-1

		var effect *linq.Effect
		if last && plan.ImagePrompt == "" {
			effect = plan.Effect
		}
		var thread *linq.ReplyTo
		if i == 0 {
			thread = replyTo
		}

		if err := d.transport.SendMessage(ctx, turn.ChatID, segment, effect, thread, nil); err != nil {
			return fmt.Errorf("send message segment %d/%d: %w", i+1, len(segments), err)
		}

		if !last {
			d.sleepFn(ctx, pacingDelay())
		}
	}

	d.logger.Debug("text dispatched", "chat_id", turn.ChatID, "segments", len(segments))
	return nil
}

// sendGeneratedImage produces the requested image and ships it as its
// own message after all text. Generation takes a while, so the typing
// indicator is re-asserted first. On failure a plain apology is sent and
// nothing image-related is written to history.
func (d *Dispatcher) sendGeneratedImage(ctx context.Context, turn agent.Turn, plan agent.Plan) {
	if err := d.transport.StartTyping(ctx, turn.ChatID); err != nil {
		d.logger.Warn("typing indicator failed", "chat_id", turn.ChatID, "error", err)
	}

	url, err := d.images.Generate(ctx, plan.ImagePrompt)
	if err != nil {
		d.logger.Warn("image generation failed", "chat_id", turn.ChatID, "error", err)
		if err := d.transport.SendMessage(ctx, turn.ChatID, imageFailText, nil, nil, nil); err != nil {
			d.logger.Warn("image apology failed", "chat_id", turn.ChatID, "error", err)
		}
		return
	}

	d.sleepFn(ctx, imageSendDelay)
	if err := d.transport.SendMessage(ctx, turn.ChatID, "", plan.Effect, nil, []linq.Attachment{{URL: url}}); err != nil {
		d.logger.Warn("image send failed", "chat_id", turn.ChatID, "error", err)
		return
	}

	marker := fmt.Sprintf("[generated an image: %s...]", truncate(plan.ImagePrompt, 50))
	if err := d.store.AppendMessage(ctx, turn.ChatID, memory.RoleAssistant, marker, ""); err != nil {
		d.logger.Warn("image marker write failed", "chat_id", turn.ChatID, "error", err)
	}
}

// setGroupIcon generates and applies a group chat icon, independent of
// the image-message flow.
func (d *Dispatcher) setGroupIcon(ctx context.Context, turn agent.Turn, prompt string) {
	if err := d.transport.StartTyping(ctx, turn.ChatID); err != nil {
		d.logger.Warn("typing indicator failed", "chat_id", turn.ChatID, "error", err)
	}

	url, err := d.images.Generate(ctx, prompt)
	if err != nil {
		d.logger.Warn("icon generation failed", "chat_id", turn.ChatID, "error", err)
		if err := d.transport.SendMessage(ctx, turn.ChatID, iconFailText, nil, nil, nil); err != nil {
			d.logger.Warn("icon apology failed", "chat_id", turn.ChatID, "error", err)
		}
		return
	}

	if err := d.transport.SetChatIcon(ctx, turn.ChatID, url); err != nil {
		d.logger.Warn("set icon failed", "chat_id", turn.ChatID, "error", err)
		return
	}

	if err := d.store.AppendMessage(ctx, turn.ChatID, memory.RoleAssistant, "[set group chat icon]", ""); err != nil {
		d.logger.Warn("icon marker write failed", "chat_id", turn.ChatID, "error", err)
	}
}

func pacingDelay() time.Duration {
	return paceMin + time.Duration(rand.Int64N(int64(paceMax-paceMin)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
