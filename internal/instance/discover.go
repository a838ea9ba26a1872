// pattern: Imperative Shell
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const healthTimeout = 2 * time.Second

var (
	// ErrNotRunning means no compositor holds the lock in the data dir.
	ErrNotRunning = errors.New("no running tessera instance found (start tessera first)")
	// ErrStale means the lock is held but the published record does not
	// answer, or answers with a different session.
	ErrStale = errors.New("tessera instance not responding")
)

// Discover finds the compositor running against dir and checks that it
// answers.
func Discover(dir string) (Record, error) {
	// If we can take the lock, nobody is running.
	fl := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return Record{}, fmt.Errorf("failed to check lock: %w", err)
	}
	if locked {
		_ = fl.Unlock()
		return Record{}, ErrNotRunning
	}

	rec, err := ReadRecord(dir)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStale, err)
	}

	client := &http.Client{Timeout: healthTimeout}
	resp, err := client.Get(rec.BaseURL() + "/api/health")
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStale, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("%w: health check status %d", ErrStale, resp.StatusCode)
	}
	var health struct {
		Session string `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStale, err)
	}
	if rec.Session != "" && health.Session != rec.Session {
		return Record{}, fmt.Errorf("%w: session %s answered, want %s", ErrStale, health.Session, rec.Session)
	}
	return rec, nil
}
