package instance

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func healthServer(t *testing.T, session string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok","session":"` + session + `"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscover_NoInstance(t *testing.T) {
	if _, err := Discover(t.TempDir()); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Discover() error = %v, want ErrNotRunning", err)
	}
}

func TestDiscover_WithInstance(t *testing.T) {
	dir := t.TempDir()
	inst, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer inst.Release()

	srv := healthServer(t, "s1")
	addr := srv.Listener.Addr().String()
	if err := inst.Publish(Record{Addr: addr, Session: "s1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	rec, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if rec.BaseURL() != "http://"+addr {
		t.Errorf("BaseURL() = %q, want %q", rec.BaseURL(), "http://"+addr)
	}
}

func TestDiscover_Stale(t *testing.T) {
	tests := []struct {
		name    string
		publish func(t *testing.T, inst *Instance)
	}{
		{
			name:    "missing record",
			publish: func(t *testing.T, inst *Instance) {},
		},
		{
			name: "dead address",
			publish: func(t *testing.T, inst *Instance) {
				if err := inst.Publish(Record{Addr: "127.0.0.1:1", Session: "s1"}); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "other session",
			publish: func(t *testing.T, inst *Instance) {
				srv := healthServer(t, "s2")
				if err := inst.Publish(Record{Addr: srv.Listener.Addr().String(), Session: "s1"}); err != nil {
					t.Fatal(err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			inst, err := Acquire(dir)
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			defer inst.Release()
			tt.publish(t, inst)

			if _, err := Discover(dir); !errors.Is(err, ErrStale) {
				t.Errorf("Discover() error = %v, want ErrStale", err)
			}
		})
	}
}
