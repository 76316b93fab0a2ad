package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribe(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/voice.m4a":
			w.Header().Set("Content-Type", "audio/mp4")
			w.Write([]byte("fake-audio-bytes"))
		case "/audio/transcriptions":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			gotModel = r.FormValue("model")
			w.Write([]byte(`{"text": "hello from a voice memo"}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	text, err := client.Transcribe(context.Background(), server.URL+"/voice.m4a")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello from a voice memo" {
		t.Errorf("unexpected transcript %q", text)
	}
	if gotModel != "whisper-1" {
		t.Errorf("expected whisper-1 model, got %q", gotModel)
	}
}

func TestTranscribe_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	if _, err := client.Transcribe(context.Background(), server.URL+"/missing.m4a"); err == nil {
		t.Fatal("expected error for unreachable audio, got nil")
	}
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("missing bearer token")
		}
		w.Write([]byte(`{"data": [{"url": "https://img.example/corgi.png"}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	url, err := client.Generate(context.Background(), "a corgi surfing")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if url != "https://img.example/corgi.png" {
		t.Errorf("unexpected image URL %q", url)
	}
}

func TestGenerate_EmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	if _, err := client.Generate(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for empty data, got nil")
	}
}
