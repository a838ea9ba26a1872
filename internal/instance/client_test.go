package instance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tessera/internal/config"
	"tessera/internal/events"
	"tessera/internal/ipc"
	"tessera/internal/logging"
	"tessera/internal/server"
)

func TestClient_Command(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/command" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req ipc.CommandRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]events.CommandResult{{Command: req.Command, Status: "success", Success: true}})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Command(context.Background(), "layout tabbed")
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if len(got) != 1 || got[0].Command != "layout tabbed" || !got[0].Success {
		t.Errorf("Command() = %+v, want one success for layout tabbed", got)
	}
}

func TestClient_ErrorReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"json error", `{"error":"output \"x\": not found"}`, `output "x": not found`},
		{"plain text", "internal error\n", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).RemoveOutput(context.Background(), "x")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("RemoveOutput() error = %v, want *APIError", err)
			}
			if apiErr.Status != http.StatusNotFound || apiErr.Message != tt.want {
				t.Errorf("APIError = %+v, want 404 %q", apiErr, tt.want)
			}
		})
	}
}

func TestClient_Logs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("scope"); got != "seat" {
			t.Errorf("scope = %q, want seat", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for i := range 3 {
			data, _ := json.Marshal(logging.LogEntry{Level: "INFO", Scope: "seat.seat0", Message: fmt.Sprintf("m%d", i)})
			_, _ = fmt.Fprintf(w, "event: log\ndata: %s\n\n", data)
		}
	}))
	defer srv.Close()

	var got []string
	err := NewClient(srv.URL).Logs(context.Background(), LogOptions{Scope: "seat", Tail: 5}, func(e logging.LogEntry) error {
		got = append(got, e.Message)
		return nil
	})
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if fmt.Sprint(got) != "[m0 m1 m2]" {
		t.Errorf("Logs() messages = %v, want [m0 m1 m2]", got)
	}
}

// startCompositor runs a real compositor behind its IPC server.
func startCompositor(t *testing.T) *Client {
	t.Helper()
	lm := logging.NewTestLogManager(1000)
	cfg := config.DefaultConfig()
	cfg.Transaction.TimeoutMS = 50
	comp, err := server.New(server.Options{Config: cfg, Logs: lm})
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- comp.Run(ctx) }()

	s := ipc.New(ipc.Config{Bind: "127.0.0.1"}, comp, lm, nil)
	comp.OnEvent(s.Publish)
	ln, err := s.Listen()
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	serveDone := make(chan error, 1)
	go func() { serveDone <- s.Serve(ln) }()
	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer scancel()
		_ = s.Shutdown(sctx)
		<-serveDone
		cancel()
		<-runDone
		_ = lm.Close()
	})
	return NewClient("http://" + s.Addr())
}

func TestClient_AgainstCompositor(t *testing.T) {
	c := startCompositor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := c.Health(ctx)
	if err != nil || session == "" {
		t.Fatalf("Health() = %q, %v", session, err)
	}

	stream, err := c.Subscribe(ctx, []string{events.TypeWindow})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	id, err := c.OpenClient(ctx, server.ClientSpec{AppID: "term", Title: "one"})
	if err != nil {
		t.Fatalf("OpenClient() error = %v", err)
	}

	for ev := range stream {
		if ev.Change == events.ChangeNew {
			if ev.ID != id {
				t.Errorf("new window id = %d, want %d", ev.ID, id)
			}
			break
		}
	}

	outs, err := c.Outputs(ctx)
	if err != nil || len(outs) != 1 {
		t.Fatalf("Outputs() = %+v, %v", outs, err)
	}
	if err := c.CloseClient(ctx, id); err != nil {
		t.Fatalf("CloseClient() error = %v", err)
	}

	// This compositor was started without log streaming.
	err = c.Logs(ctx, LogOptions{}, func(logging.LogEntry) error { return nil })
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("Logs() error = %v, want 503", err)
	}
}
