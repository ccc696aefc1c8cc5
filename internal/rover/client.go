// HTTP client for the rover backend status and control endpoints
package rover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"rover-console/internal/telemetry"
)

const (
	StatusPath  = "/api/rover/status"
	ControlPath = "/api/rover/control"

	// maxBody bounds how much of a response is read.
	maxBody = 1 << 20
)

var (
	// ErrTransport marks failures to reach the backend or get a usable response.
	ErrTransport = errors.New("transport failure")
	// ErrDecode marks responses that arrived but could not be understood.
	ErrDecode = errors.New("decode failure")
)

// Client talks to the rover backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchStatus retrieves the current telemetry snapshot.
func (c *Client) FetchStatus(ctx context.Context) (telemetry.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+StatusPath, nil)
	if err != nil {
		return telemetry.Snapshot{}, fmt.Errorf("%w: build status request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	status, body, err := c.do(req)
	if err != nil {
		return telemetry.Snapshot{}, err
	}
	if status < 200 || status > 299 {
		return telemetry.Snapshot{}, fmt.Errorf("%w: status endpoint returned %d", ErrTransport, status)
	}
	snap, err := telemetry.DecodeSnapshot(body)
	if err != nil {
		return telemetry.Snapshot{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return snap, nil
}

type controlRequest struct {
	Command string `json:"command"`
}

type controlResponse struct {
	Error *string `json:"error"`
}

// SendCommand submits one command. A server-side rejection is reported in
// the CommandResult, not as an error.
func (c *Client) SendCommand(ctx context.Context, kind telemetry.CommandKind) (telemetry.CommandResult, error) {
	res := telemetry.CommandResult{Command: kind}
	if !kind.Valid() {
		return res, fmt.Errorf("invalid command %d", int(kind))
	}
	payload, err := json.Marshal(controlRequest{Command: kind.String()})
	if err != nil {
		return res, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ControlPath, bytes.NewReader(payload))
	if err != nil {
		return res, fmt.Errorf("%w: build control request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", RequestID(ctx))

	status, body, err := c.do(req)
	if err != nil {
		return res, err
	}
	ok := status >= 200 && status <= 299
	var cr controlResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		if !ok {
			return res, fmt.Errorf("%w: control endpoint returned %d", ErrTransport, status)
		}
		return res, fmt.Errorf("%w: control response: %w", ErrDecode, err)
	}
	if cr.Error != nil && *cr.Error != "" {
		res.Error = *cr.Error
		return res, nil
	}
	if !ok {
		return res, fmt.Errorf("%w: control endpoint returned %d", ErrTransport, status)
	}
	return res, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	return resp.StatusCode, body, nil
}

type requestIDKey struct{}

// WithRequestID stores a request id for outbound control requests.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored in ctx or a fresh one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Class names the failure class of err for logs and the link indicator.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
