// pattern: Imperative Shell

// Package instance enforces a single compositor per data directory and lets
// other processes find and talk to it.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileName   = "tessera.lock"
	recordFileName = "tessera.json"
)

// ErrRunning is returned by Acquire when another compositor holds the lock.
var ErrRunning = errors.New("another tessera instance is already running")

// Record describes a running compositor.
type Record struct {
	Addr    string    `json:"addr"`
	Session string    `json:"session"`
	PID     int       `json:"pid"`
	Started time.Time `json:"started"`
}

// BaseURL returns the IPC base URL, e.g. "http://127.0.0.1:12345".
func (r Record) BaseURL() string {
	return "http://" + r.Addr
}

// Instance is a held single-instance lock.
type Instance struct {
	dir string
	fl  *flock.Flock
}

// Acquire takes the exclusive lock in dir, creating dir if needed. The
// caller must call Release.
func Acquire(dir string) (*Instance, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	fl := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrRunning
	}
	return &Instance{dir: dir, fl: fl}, nil
}

// Publish writes rec where Discover can find it.
func (i *Instance) Publish(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tmp := filepath.Join(i.dir, recordFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(i.dir, recordFileName))
}

// Release removes the record and drops the lock.
func (i *Instance) Release() {
	if i == nil {
		return
	}
	_ = os.Remove(filepath.Join(i.dir, recordFileName))
	if i.fl != nil {
		_ = i.fl.Unlock()
	}
}

// ReadRecord loads the record left by a running compositor.
func ReadRecord(dir string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(filepath.Join(dir, recordFileName))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse %s: %w", recordFileName, err)
	}
	if rec.Addr == "" {
		return rec, fmt.Errorf("%s has no address", recordFileName)
	}
	return rec, nil
}
