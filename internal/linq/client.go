// Package linq is the HTTP client for the Linq Blue messaging API: text
// delivery with effects and reply threading, tapbacks, typing indicators,
// read receipts, chat metadata, renames, icons and contact cards.
package linq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultBaseURL = "https://api.linqapp.com/api/v3"

// HTTPDoer abstracts the HTTP client for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Linq Blue API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Linq Blue client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage delivers a text message, optionally with an effect, reply
// threading and attachments. Each send carries a client-generated
// idempotency key so transport retries can't duplicate messages.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, effect *Effect, replyTo *ReplyTo, attachments []Attachment) error {
	payload := map[string]any{
		"chat_id":         chatID,
		"text":            text,
		"idempotency_key": uuid.NewString(),
	}
	if effect != nil {
		payload["effect"] = effect
	}
	if replyTo != nil {
		payload["reply_to"] = replyTo
	}
	if len(attachments) > 0 {
		payload["attachments"] = attachments
	}
	return c.post(ctx, "/messages", payload, nil)
}

// SendReaction applies a tapback to a message.
func (c *Client) SendReaction(ctx context.Context, messageID string, reaction Reaction) error {
	return c.post(ctx, fmt.Sprintf("/messages/%s/reactions", messageID), reaction, nil)
}

// MarkRead sends a read receipt for the chat's latest messages.
func (c *Client) MarkRead(ctx context.Context, chatID string) error {
	return c.post(ctx, fmt.Sprintf("/chats/%s/read", chatID), nil, nil)
}

// StartTyping raises the typing indicator for the chat.
func (c *Client) StartTyping(ctx context.Context, chatID string) error {
	return c.post(ctx, fmt.Sprintf("/chats/%s/typing", chatID), nil, nil)
}

// GetChat fetches roster and display-name metadata for a chat.
func (c *Client) GetChat(ctx context.Context, chatID string) (ChatInfo, error) {
	var info ChatInfo
	if err := c.get(ctx, fmt.Sprintf("/chats/%s", chatID), &info); err != nil {
		return ChatInfo{}, err
	}
	return info, nil
}

// RenameChat renames a group conversation.
func (c *Client) RenameChat(ctx context.Context, chatID, name string) error {
	return c.post(ctx, fmt.Sprintf("/chats/%s/name", chatID), map[string]string{"name": name}, nil)
}

// SetChatIcon sets a group conversation's icon from an image URL.
func (c *Client) SetChatIcon(ctx context.Context, chatID, imageURL string) error {
	return c.post(ctx, fmt.Sprintf("/chats/%s/icon", chatID), map[string]string{"image_url": imageURL}, nil)
}

// ShareContactCard shares the bridge's contact card into the chat.
func (c *Client) ShareContactCard(ctx context.Context, chatID string) error {
	return c.post(ctx, fmt.Sprintf("/chats/%s/contact_card", chatID), nil, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("linq API error %d on %s %s: %s", resp.StatusCode, method, path, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
