package rover

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"rover-console/internal/telemetry"
)

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != StatusPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"battery":77,"position":[1.5,-2],"is_charging":true,"is_moving":false,"has_communication":true,"survivors_found":4}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	snap, err := c.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	want := telemetry.Snapshot{Battery: 77, Position: telemetry.Position{X: 1.5, Y: -2}, IsCharging: true, HasCommunication: true, SurvivorsFound: 4}
	if snap != want {
		t.Fatalf("got %+v, want %+v", snap, want)
	}
}

func TestFetchStatusDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"battery":"full"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchStatus(context.Background())
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if Class(err) != "decode" {
		t.Fatalf("class = %q", Class(err))
	}
}

func TestFetchStatusHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchStatus(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestFetchStatusUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).FetchStatus(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if Class(err) != "transport" {
		t.Fatalf("class = %q", Class(err))
	}
}

func TestFetchStatusTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewClient(srv.URL).FetchStatus(ctx)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if Class(err) != "timeout" {
		t.Fatalf("class = %q", Class(err))
	}
}

type captured struct {
	mu      sync.Mutex
	bodies  []string
	ctypes  []string
	reqIDs  []string
	respond string
	status  int
}

func (c *captured) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != ControlPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, string(b))
		c.ctypes = append(c.ctypes, r.Header.Get("Content-Type"))
		c.reqIDs = append(c.reqIDs, r.Header.Get("X-Request-ID"))
		c.mu.Unlock()
		if c.status != 0 {
			w.WriteHeader(c.status)
		}
		io.WriteString(w, c.respond)
	}
}

func TestSendCommandAccepted(t *testing.T) {
	cp := &captured{respond: `{"status":"Rover moving left","success":true}`}
	srv := httptest.NewServer(cp.handler(t))
	defer srv.Close()

	res, err := NewClient(srv.URL).SendCommand(context.Background(), telemetry.Left)
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if !res.Accepted() || res.Command != telemetry.Left {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(cp.bodies) != 1 || cp.bodies[0] != `{"command":"left"}` {
		t.Fatalf("unexpected bodies %q", cp.bodies)
	}
	if cp.ctypes[0] != "application/json" {
		t.Fatalf("content type = %q", cp.ctypes[0])
	}
	if cp.reqIDs[0] == "" {
		t.Fatalf("missing X-Request-ID")
	}
}

func TestSendCommandRejected(t *testing.T) {
	cp := &captured{respond: `{"error":"obstacle detected"}`}
	srv := httptest.NewServer(cp.handler(t))
	defer srv.Close()

	ctx := WithRequestID(context.Background(), "req-1")
	res, err := NewClient(srv.URL).SendCommand(ctx, telemetry.Forward)
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if res.Accepted() || res.Error != "obstacle detected" {
		t.Fatalf("unexpected result %+v", res)
	}
	if cp.reqIDs[0] != "req-1" {
		t.Fatalf("request id = %q", cp.reqIDs[0])
	}
}

func TestSendCommandRejectedWithHTTPStatus(t *testing.T) {
	cp := &captured{respond: `{"error":"Cannot move rover while charging","success":false}`, status: http.StatusConflict}
	srv := httptest.NewServer(cp.handler(t))
	defer srv.Close()

	res, err := NewClient(srv.URL).SendCommand(context.Background(), telemetry.Right)
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if res.Error != "Cannot move rover while charging" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSendCommandEmptyErrorIsAccepted(t *testing.T) {
	cp := &captured{respond: `{"error":""}`}
	srv := httptest.NewServer(cp.handler(t))
	defer srv.Close()

	res, err := NewClient(srv.URL).SendCommand(context.Background(), telemetry.Stop)
	if err != nil || !res.Accepted() {
		t.Fatalf("expected accepted, got %+v %v", res, err)
	}
}

func TestSendCommandFailures(t *testing.T) {
	cp := &captured{respond: `not json`}
	srv := httptest.NewServer(cp.handler(t))
	defer srv.Close()
	_, err := NewClient(srv.URL).SendCommand(context.Background(), telemetry.Stop)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}

	cp2 := &captured{respond: `gateway down`, status: http.StatusBadGateway}
	srv2 := httptest.NewServer(cp2.handler(t))
	defer srv2.Close()
	_, err = NewClient(srv2.URL).SendCommand(context.Background(), telemetry.Stop)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSendCommandInvalidKind(t *testing.T) {
	cp := &captured{respond: `{}`}
	srv := httptest.NewServer(cp.handler(t))
	defer srv.Close()
	if _, err := NewClient(srv.URL).SendCommand(context.Background(), telemetry.CommandKind(9)); err == nil {
		t.Fatalf("expected error")
	}
	if len(cp.bodies) != 0 {
		t.Fatalf("no request should be sent for an invalid command")
	}
}
