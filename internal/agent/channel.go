package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ashureev/shopagent/internal/metrics"
	"github.com/google/uuid"
)

// maxResponseSize bounds how much of a backend reply is read (4MB).
const maxResponseSize = 4 << 20

// ContextSource supplies the context map attached to each command.
type ContextSource interface {
	Snapshot() map[string]any
}

// CommandRequest is the body POSTed to {apiBase}/command.
type CommandRequest struct {
	Command   string         `json:"command"`
	Context   map[string]any `json:"context"`
	SessionID string         `json:"session_id"`
}

// Channel sends user commands to the agent backend.
type Channel struct {
	baseURL   string
	client    *http.Client
	context   ContextSource
	sessionID string
	seq       atomic.Uint64
	logger    *slog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Channel) { ch.client = c }
}

// WithLogger sets the channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(ch *Channel) { ch.logger = l }
}

// WithSessionID pins the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(ch *Channel) { ch.sessionID = id }
}

// NewChannel creates a channel to the agent API rooted at baseURL
// (e.g. http://localhost:8000/api/agent). src may be nil.
func NewChannel(baseURL string, src ContextSource, opts ...Option) *Channel {
	ch := &Channel{
		baseURL: baseURL,
		client:  http.DefaultClient,
		context: src,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	if ch.sessionID == "" {
		ch.sessionID = NewSessionID()
	}
	return ch
}

// SessionID returns the id sent with every command.
func (c *Channel) SessionID() string {
	return c.sessionID
}

// SendCommand delivers text to the backend and returns its response. It
// never fails: transport errors, non-2xx statuses and unreadable bodies
// all yield the Fallback response. The returned response carries the
// sequence number assigned when the command was sent.
func (c *Channel) SendCommand(ctx context.Context, text string) *Response {
	seq := c.seq.Add(1)
	start := time.Now()

	resp, err := c.send(ctx, text)
	if err != nil {
		c.logger.Error("agent command failed",
			"error", err,
			"session_id", c.sessionID,
			"seq", seq,
		)
		resp = Fallback()
	}
	metrics.RecordCommand(err != nil, time.Since(start))

	resp.Seq = seq
	return resp
}

func (c *Channel) snapshot() map[string]any {
	if c.context == nil {
		return map[string]any{}
	}
	snap := c.context.Snapshot()
	if snap == nil {
		return map[string]any{}
	}
	return snap
}

func (c *Channel) send(ctx context.Context, text string) (*Response, error) {
	body, err := json.Marshal(CommandRequest{
		Command:   text,
		Context:   c.snapshot(),
		SessionID: c.sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/command", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post command: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close agent response body", "error", closeErr)
		}
	}()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("agent API returned %s", httpResp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp, err := DecodeResponse(data)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Suggestions fetches example commands from {apiBase}/suggestions and
// returns at most limit of them.
func (c *Channel) Suggestions(ctx context.Context, limit int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/suggestions", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get suggestions: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("suggestions API returned %s", httpResp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read suggestions: %w", err)
	}
	obj, ok := parseObject(data)
	if !ok {
		return nil, fmt.Errorf("suggestions response is not a JSON object")
	}

	out := obj.strings("suggestions")
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
