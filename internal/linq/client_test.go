package linq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessage_IncludesIdempotencyKey(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	effect := &Effect{Family: EffectScreen, Name: "confetti"}
	if err := client.SendMessage(context.Background(), "chat-1", "hello", effect, nil, nil); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if payload["chat_id"] != "chat-1" || payload["text"] != "hello" {
		t.Errorf("unexpected payload: %v", payload)
	}
	if payload["idempotency_key"] == "" || payload["idempotency_key"] == nil {
		t.Error("expected an idempotency key")
	}
	if payload["effect"] == nil {
		t.Error("expected effect in payload")
	}
}

func TestGetChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats/chat-1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"handles": [{"handle": "+1"}, {"handle": "+2"}, {"handle": "+3"}], "display_name": "the crew"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	info, err := client.GetChat(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if !info.IsGroup() {
		t.Error("expected 3-handle chat to be a group")
	}
	if info.DisplayName != "the crew" {
		t.Errorf("unexpected display name %q", info.DisplayName)
	}
}

func TestAPIErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "bad key"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	if err := client.MarkRead(context.Background(), "chat-1"); err == nil {
		t.Fatal("expected error for 403 response, got nil")
	}
}

func TestValidReaction(t *testing.T) {
	tests := []struct {
		kind  string
		emoji string
		want  bool
	}{
		{ReactionLove, "", true},
		{ReactionLaugh, "", true},
		{ReactionCustom, "🔥", true},
		{ReactionCustom, "", false},
		{"wave", "", false},
	}
	for _, tt := range tests {
		if got := ValidReaction(tt.kind, tt.emoji); got != tt.want {
			t.Errorf("ValidReaction(%q, %q) = %v, want %v", tt.kind, tt.emoji, got, tt.want)
		}
	}
}

func TestValidEffect(t *testing.T) {
	tests := []struct {
		family string
		name   string
		want   bool
	}{
		{EffectScreen, "confetti", true},
		{EffectScreen, "slam", false},
		{EffectBubble, "slam", true},
		{EffectBubble, "fireworks", false},
		{"hologram", "confetti", false},
	}
	for _, tt := range tests {
		if got := ValidEffect(tt.family, tt.name); got != tt.want {
			t.Errorf("ValidEffect(%q, %q) = %v, want %v", tt.family, tt.name, got, tt.want)
		}
	}
}

func TestServiceSupportsEffects(t *testing.T) {
	if !ServiceIMessage.SupportsEffects() {
		t.Error("iMessage should support effects")
	}
	if ServiceRCS.SupportsEffects() || ServiceSMS.SupportsEffects() {
		t.Error("RCS/SMS should not support effects")
	}
}
