package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linq-team/bluebridge/internal/agent"
	"github.com/linq-team/bluebridge/internal/anthropic"
	"github.com/linq-team/bluebridge/internal/dispatch"
	"github.com/linq-team/bluebridge/internal/linq"
	"github.com/linq-team/bluebridge/internal/memory"
	"github.com/linq-team/bluebridge/internal/triage"
)

// fakeProvider answers the main model with scripted text and the quick
// model with a scripted triage verdict.
type fakeProvider struct {
	mainText  string
	mainErr   error
	quickText string
}

func (f *fakeProvider) Messages(context.Context, anthropic.MessagesRequest) (*anthropic.MessagesResponse, error) {
	if f.mainErr != nil {
		return nil, f.mainErr
	}
	return &anthropic.MessagesResponse{
		Content: []anthropic.ContentBlock{{Type: anthropic.BlockText, Text: f.mainText}},
	}, nil
}

func (f *fakeProvider) Complete(context.Context, string, string, string, int) (string, error) {
	return f.quickText, nil
}

// fakeStore is a minimal in-memory memory.Store.
type fakeStore struct {
	mu      sync.Mutex
	history map[string][]memory.StoredMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{history: map[string][]memory.StoredMessage{}}
}

func (f *fakeStore) History(_ context.Context, chatID string) ([]memory.StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[chatID], nil
}

func (f *fakeStore) AppendMessage(_ context.Context, chatID, role, content, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[chatID] = append(f.history[chatID], memory.StoredMessage{Role: role, Content: content, Handle: handle})
	return nil
}

func (f *fakeStore) ClearHistory(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.history, chatID)
	return nil
}

func (f *fakeStore) Profile(context.Context, string) (*memory.UserProfile, error) {
	return nil, nil
}

func (f *fakeStore) SetName(context.Context, string, string) (bool, error)  { return true, nil }
func (f *fakeStore) AddFact(context.Context, string, string) (bool, error) { return true, nil }
func (f *fakeStore) ClearProfile(context.Context, string) (bool, error)    { return true, nil }
func (f *fakeStore) Close() error                                          { return nil }

// fakeTransport records calls; safe for the handler's concurrent
// pre-tasks.
type fakeTransport struct {
	mu        sync.Mutex
	chat      linq.ChatInfo
	sent      []string
	reactions []linq.Reaction
	marked    int
	typed     int
	shared    int
}

func (f *fakeTransport) SendMessage(_ context.Context, _, text string, _ *linq.Effect, _ *linq.ReplyTo, _ []linq.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) SendReaction(_ context.Context, _ string, reaction linq.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, reaction)
	return nil
}

func (f *fakeTransport) MarkRead(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked++
	return nil
}

func (f *fakeTransport) StartTyping(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed++
	return nil
}

func (f *fakeTransport) GetChat(context.Context, string) (linq.ChatInfo, error) {
	return f.chat, nil
}

func (f *fakeTransport) RenameChat(context.Context, string, string) error { return nil }
func (f *fakeTransport) SetChatIcon(context.Context, string, string) error {
	return nil
}

func (f *fakeTransport) ShareContactCard(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shared++
	return nil
}

type fakeImages struct{}

func (fakeImages) Generate(context.Context, string) (string, error) {
	return "", errors.New("not in this test")
}

func (fakeImages) Transcribe(context.Context, string) (string, error) {
	return "", errors.New("not in this test")
}

func newTestHandler(provider *fakeProvider, transport *fakeTransport, store *fakeStore) *Handler {
	media := fakeImages{}
	engine := agent.New(provider, store, media, agent.Config{Model: "main", QuickModel: "quick", MaxTokens: 512})
	classifier := triage.New(provider, store, "quick")
	dispatcher := dispatch.New(transport, media, store, dispatch.WithSleepFunc(func(context.Context, time.Duration) {}))
	return NewHandler(engine, classifier, dispatcher, transport, store)
}

func postWebhook(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func directPayload(text string) string {
	return `{"chat_id":"chat-1","message_id":"msg-1","from":"+1555","text":"` + text + `","service":"iMessage"}`
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, &fakeTransport{}, newFakeStore())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health body = %s", rec.Body.String())
	}
}

func TestRejectsBadPayloads(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, &fakeTransport{}, newFakeStore())

	if rec := postWebhook(t, h, "{not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d, want 400", rec.Code)
	}
	if rec := postWebhook(t, h, `{"text":"hi"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing ids status = %d, want 400", rec.Code)
	}
}

func TestDirectMessageFullTurn(t *testing.T) {
	provider := &fakeProvider{mainText: "hey there"}
	transport := &fakeTransport{chat: linq.ChatInfo{Handles: []linq.Handle{{Handle: "+1555"}, {Handle: "bot"}}}}
	store := newFakeStore()
	h := newTestHandler(provider, transport, store)

	rec := postWebhook(t, h, directPayload("hello"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if transport.marked != 1 || transport.typed < 1 {
		t.Errorf("marked = %d, typed = %d, want courtesy actions", transport.marked, transport.typed)
	}
	if len(transport.sent) != 1 || transport.sent[0] != "hey there" {
		t.Errorf("sent = %v", transport.sent)
	}
	if len(store.history["chat-1"]) != 2 {
		t.Errorf("history = %+v, want user + assistant", store.history["chat-1"])
	}
}

func TestContactCardCadence(t *testing.T) {
	provider := &fakeProvider{mainText: "hi"}
	transport := &fakeTransport{}
	h := newTestHandler(provider, transport, newFakeStore())

	for i := 0; i < dispatch.ContactCardInterval+1; i++ {
		postWebhook(t, h, directPayload("hello"))
	}

	// Shared on message 1 and message 5 of 6.
	if transport.shared != 2 {
		t.Errorf("contact card shared %d times over 6 messages, want 2", transport.shared)
	}
}

func TestGroupIgnoreLeavesNoTrace(t *testing.T) {
	provider := &fakeProvider{mainText: "should not be sent", quickText: "ignore"}
	transport := &fakeTransport{chat: linq.ChatInfo{Handles: []linq.Handle{
		{Handle: "+1555"}, {Handle: "+1666"}, {Handle: "bot"},
	}}}
	store := newFakeStore()
	h := newTestHandler(provider, transport, store)

	rec := postWebhook(t, h, directPayload("yo mike you coming?"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(transport.sent) != 0 {
		t.Errorf("sent = %v, want silence", transport.sent)
	}
	if len(store.history["chat-1"]) != 0 {
		t.Errorf("history = %+v, ignored messages should not be stored", store.history["chat-1"])
	}
}

func TestGroupReactPath(t *testing.T) {
	provider := &fakeProvider{quickText: "react:love"}
	transport := &fakeTransport{chat: linq.ChatInfo{Handles: []linq.Handle{
		{Handle: "+1555"}, {Handle: "+1666"}, {Handle: "bot"},
	}}}
	store := newFakeStore()
	h := newTestHandler(provider, transport, store)

	rec := postWebhook(t, h, directPayload("thanks!"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(transport.reactions) != 1 || transport.reactions[0].Kind != linq.ReactionLove {
		t.Fatalf("reactions = %+v", transport.reactions)
	}
	if len(transport.sent) != 0 {
		t.Errorf("sent = %v, react path should not send text", transport.sent)
	}

	history := store.history["chat-1"]
	if len(history) != 2 {
		t.Fatalf("history = %+v, want message + marker", history)
	}
	if history[1].Content != "[reacted with love]" {
		t.Errorf("marker = %q", history[1].Content)
	}
}

func TestGroupMediaBypassesTriage(t *testing.T) {
	provider := &fakeProvider{mainText: "nice pic", quickText: "ignore"}
	transport := &fakeTransport{chat: linq.ChatInfo{Handles: []linq.Handle{
		{Handle: "+1555"}, {Handle: "+1666"}, {Handle: "bot"},
	}}}
	h := newTestHandler(provider, transport, newFakeStore())

	payload := `{"chat_id":"chat-1","message_id":"msg-1","from":"+1555","service":"iMessage",` +
		`"attachments":[{"url":"https://cdn/pic.jpg","mime_type":"image/jpeg"}]}`
	rec := postWebhook(t, h, payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(transport.sent) != 1 || transport.sent[0] != "nice pic" {
		t.Errorf("sent = %v, media should always get a full turn", transport.sent)
	}
}

func TestGroupCommandBypassesTriage(t *testing.T) {
	provider := &fakeProvider{quickText: "ignore"}
	transport := &fakeTransport{chat: linq.ChatInfo{Handles: []linq.Handle{
		{Handle: "+1555"}, {Handle: "+1666"}, {Handle: "bot"},
	}}}
	h := newTestHandler(provider, transport, newFakeStore())

	rec := postWebhook(t, h, directPayload("/help"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(transport.sent) != 1 || !strings.Contains(transport.sent[0], "/clear") {
		t.Errorf("sent = %v, want help text", transport.sent)
	}
}

func TestProviderFailureReturns500(t *testing.T) {
	provider := &fakeProvider{mainErr: errors.New("api down")}
	h := newTestHandler(provider, &fakeTransport{}, newFakeStore())

	rec := postWebhook(t, h, directPayload("hello"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSplitMedia(t *testing.T) {
	images, audio := splitMedia([]InboundAttachment{
		{URL: "https://cdn/a.jpg", MimeType: "image/jpeg"},
		{URL: "https://cdn/b.m4a", MimeType: "audio/mp4"},
		{URL: "https://cdn/c.pdf", MimeType: "application/pdf"},
		{URL: "https://cdn/d.png", MimeType: "image/png"},
	})
	if len(images) != 2 || images[0].URL != "https://cdn/a.jpg" || images[1].URL != "https://cdn/d.png" {
		t.Errorf("images = %+v", images)
	}
	if len(audio) != 1 || audio[0].URL != "https://cdn/b.m4a" {
		t.Errorf("audio = %+v", audio)
	}
}
