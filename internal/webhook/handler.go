// Package webhook is the HTTP ingress: it receives Linq Blue message
// events, gathers chat context concurrently, gates group messages
// through triage and hands full turns to the orchestrator.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/linq-team/bluebridge/internal/agent"
	"github.com/linq-team/bluebridge/internal/dispatch"
	"github.com/linq-team/bluebridge/internal/linq"
	"github.com/linq-team/bluebridge/internal/memory"
	"github.com/linq-team/bluebridge/internal/triage"
)

// Handler wires the webhook endpoints to the rest of the service.
type Handler struct {
	engine     *agent.Engine
	classifier *triage.Classifier
	dispatcher *dispatch.Dispatcher
	transport  dispatch.Transport
	store      memory.Store
	counter    *dispatch.ChatCounter
	logger     *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the structured logger for the handler.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates the webhook handler.
func NewHandler(engine *agent.Engine, classifier *triage.Classifier, dispatcher *dispatch.Dispatcher, transport dispatch.Transport, store memory.Store, opts ...Option) *Handler {
	h := &Handler{
		engine:     engine,
		classifier: classifier,
		dispatcher: dispatcher,
		transport:  transport,
		store:      store,
		counter:    dispatch.NewChatCounter(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP mux for the service.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", h.handleMessage)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if msg.ChatID == "" || msg.MessageID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "chat_id and message_id are required"})
		return
	}

	turnID := uuid.NewString()
	h.logger.Debug("message received", "turn_id", turnID, "chat_id", msg.ChatID, "service", string(msg.Service))

	if err := h.process(r.Context(), msg); err != nil {
		h.logger.Error("message processing failed", "turn_id", turnID, "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "processing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// process runs one inbound message end to end. Only a failed main
// provider call or a failed text send surfaces as an error; context
// gathering and courtesy actions degrade with a log line.
func (h *Handler) process(ctx context.Context, msg InboundMessage) error {
	turns := h.counter.Bump(msg.ChatID)

	var (
		chat    linq.ChatInfo
		profile *memory.UserProfile
	)

	// Read receipts, typing, the contact card and the context reads are
	// independent of each other, so they run at once.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.transport.MarkRead(gctx, msg.ChatID); err != nil {
			h.logger.Warn("mark read failed", "chat_id", msg.ChatID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := h.transport.StartTyping(gctx, msg.ChatID); err != nil {
			h.logger.Warn("start typing failed", "chat_id", msg.ChatID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		info, err := h.transport.GetChat(gctx, msg.ChatID)
		if err != nil {
			h.logger.Warn("chat lookup failed, treating as direct chat", "chat_id", msg.ChatID, "error", err)
			return nil
		}
		chat = info
		return nil
	})
	g.Go(func() error {
		if msg.From == "" {
			return nil
		}
		p, err := h.store.Profile(gctx, msg.From)
		if err != nil {
			h.logger.Warn("profile read failed", "handle", msg.From, "error", err)
			return nil
		}
		profile = p
		return nil
	})
	if dispatch.ShouldShareContact(turns) {
		g.Go(func() error {
			if err := h.transport.ShareContactCard(gctx, msg.ChatID); err != nil {
				h.logger.Warn("contact card share failed", "chat_id", msg.ChatID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	images, audio := splitMedia(msg.Attachments)
	turn := agent.Turn{
		ChatID:    msg.ChatID,
		Sender:    msg.From,
		MessageID: msg.MessageID,
		Text:      msg.Text,
		Images:    images,
		Audio:     audio,
		Effect:    msg.Effect,
		IsReply:   msg.ReplyTo != nil,
		Service:   msg.Service,
		Chat:      chat,
		Profile:   profile,
	}

	// Group messages without media go through triage first so the bot
	// stays quiet in conversations that aren't for it. Media always gets
	// a full turn.
	if turn.IsGroup() && len(images) == 0 && len(audio) == 0 && !isCommand(msg.Text) {
		action, reaction := h.classifier.Classify(ctx, msg.ChatID, msg.From, msg.Text)
		switch action {
		case triage.ActionIgnore:
			return nil
		case triage.ActionReact:
			h.react(ctx, turn, reaction)
			return nil
		}
	}

	plan, err := h.engine.Respond(ctx, turn)
	if err != nil {
		return fmt.Errorf("respond: %w", err)
	}
	if err := h.dispatcher.Run(ctx, turn, plan); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}

// react delivers a triage reaction and records the exchange in history
// so later turns can see the message and the tapback it got.
func (h *Handler) react(ctx context.Context, turn agent.Turn, reaction *linq.Reaction) {
	if reaction == nil {
		return
	}
	if err := h.transport.SendReaction(ctx, turn.MessageID, *reaction); err != nil {
		h.logger.Warn("triage reaction failed", "chat_id", turn.ChatID, "error", err)
		return
	}
	if turn.Text != "" {
		if err := h.store.AppendMessage(ctx, turn.ChatID, memory.RoleUser, turn.Text, turn.Sender); err != nil {
			h.logger.Warn("message write failed", "chat_id", turn.ChatID, "error", err)
		}
	}
	marker := fmt.Sprintf("[reacted with %s]", reaction.Display())
	if err := h.store.AppendMessage(ctx, turn.ChatID, memory.RoleAssistant, marker, ""); err != nil {
		h.logger.Warn("reaction marker write failed", "chat_id", turn.ChatID, "error", err)
	}
}

// isCommand reports whether the text is a control command, which always
// bypasses triage even in groups.
func isCommand(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/help", "/clear", "/forget me", "/forgetme":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
