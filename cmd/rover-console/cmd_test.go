package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const snapshotJSON = `{"battery":55,"position":[1.5,-2],"is_charging":false,"is_moving":true,"has_communication":true,"survivors_found":3}`

func roverAPI(t *testing.T, controlReply string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/rover/status", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, snapshotJSON)
	})
	mux.HandleFunc("POST /api/rover/control", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Command string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		io.WriteString(w, controlReply)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ROVER_API_URL", "")
	configPath, schemaPath, apiURL, roverID, logLevel = "", "", "", "", ""
	statusJSON, probeSkipControl = false, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStatusText(t *testing.T) {
	srv := roverAPI(t, `{}`)
	out, err := run(t, "status", "--api", srv.URL)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"battery=55%", "status=Moving", "pos=(1.50, -2.00)", "survivors=3", "controls=enabled"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestStatusJSON(t *testing.T) {
	srv := roverAPI(t, `{}`)
	out, err := run(t, "status", "--json", "--api", srv.URL)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st struct {
		Link string `json:"link"`
		View struct {
			BatteryText  string `json:"battery_text"`
			BatteryColor string `json:"battery_color"`
		} `json:"view"`
	}
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if st.Link != "live" || st.View.BatteryText != "55%" || st.View.BatteryColor != "green" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStatusUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()
	out, err := run(t, "status", "--api", srv.URL)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(out, "poll #1 failed (transport)") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSendAccepted(t *testing.T) {
	srv := roverAPI(t, `{"error": null}`)
	out, err := run(t, "send", "forward", "--api", srv.URL)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(out, "command forward accepted") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSendRejected(t *testing.T) {
	srv := roverAPI(t, `{"error": "Battery too low"}`)
	out, err := run(t, "send", "left", "--api", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Fatalf("expected rejection error, got %v", err)
	}
	if !strings.Contains(out, "Battery too low") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSendUnknownCommand(t *testing.T) {
	if _, err := run(t, "send", "jump"); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestProbe(t *testing.T) {
	srv := roverAPI(t, `{"error": "Rover is charging"}`)
	out, err := run(t, "probe", "--api", srv.URL)
	if err != nil {
		t.Fatalf("probe: %v\n%s", err, out)
	}
	if strings.Count(out, "ok ") != 2 || !strings.Contains(out, "stop rejected: Rover is charging") {
		t.Fatalf("unexpected output %q", out)
	}

	srv.Close()
	out, err = run(t, "probe", "--api", srv.URL, "--skip-control")
	if err == nil || !strings.Contains(out, "FAIL status") {
		t.Fatalf("expected status failure, got %v\n%s", err, out)
	}
}
