// Package client talks to the data-analysis chat backend over HTTP: the
// per-conversation SSE message stream plus the CRUD collaborators (files,
// conversations, scripts) the streaming core depends on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidalab/datachat/pkg/chat"
)

const maxErrorBodyBytes = 64 * 1024

// Client is an HTTP client for the chat backend.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithAPIKey sets a bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendRequest is the body of a message-stream request. FileIDs is omitted
// from the wire entirely when empty.
type SendRequest struct {
	Message string   `json:"message"`
	FileIDs []string `json:"file_ids,omitempty"`
}

// OpenMessageStream starts an agentic turn and returns the raw response
// body for the caller's read loop. The caller owns closing it. No timeout
// is imposed on the stream; cancellation happens through ctx.
func (c *Client) OpenMessageStream(ctx context.Context, conversationID string, sendReq SendRequest) (io.ReadCloser, error) {
	jsonBody, err := json.Marshal(sendReq)
	if err != nil {
		return nil, fmt.Errorf("encode stream request: %w", err)
	}

	url := fmt.Sprintf("%s/api/conversations/%s/messages/stream", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	slog.Debug("[Client] opening message stream",
		"conversation", conversationID, "bytes", len(jsonBody))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "open message stream", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, ClassifyAPIError(resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

// ConversationInfo is the backend's view of a conversation.
type ConversationInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateConversation creates a new conversation on the backend.
func (c *Client) CreateConversation(ctx context.Context) (*ConversationInfo, error) {
	var out struct {
		Conversation ConversationInfo `json:"conversation"`
	}
	if err := c.postJSON(ctx, "/api/conversations", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

// ListMessages fetches the committed transcript of a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	url := fmt.Sprintf("%s/api/conversations/%s/messages", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build messages request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "list messages", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, ClassifyAPIError(resp.StatusCode, string(body))
	}

	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode messages response: %w", err)
	}
	return out.Messages, nil
}

// Script is a saved analysis script.
type Script struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code"`
	Language    string `json:"language"`
}

// SaveScript stores a script on the backend and returns it with the
// server-assigned id when the backend reports one.
func (c *Client) SaveScript(ctx context.Context, script Script) (*Script, error) {
	var out struct {
		Script *Script `json:"script"`
	}
	if err := c.postJSON(ctx, "/api/scripts", script, &out); err != nil {
		return nil, err
	}
	if out.Script != nil {
		return out.Script, nil
	}
	return &script, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Op: "POST " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return ClassifyAPIError(resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
