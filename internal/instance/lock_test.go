package instance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	inst, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := Acquire(dir); !errors.Is(err, ErrRunning) {
		t.Fatalf("second Acquire() error = %v, want ErrRunning", err)
	}

	rec := Record{Addr: "127.0.0.1:8080", Session: "abc", PID: 42, Started: time.Unix(1700000000, 0).UTC()}
	if err := inst.Publish(rec); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	got, err := ReadRecord(dir)
	if err != nil {
		t.Fatalf("ReadRecord() error = %v", err)
	}
	if got != rec {
		t.Errorf("ReadRecord() = %+v, want %+v", got, rec)
	}
	if got.BaseURL() != "http://127.0.0.1:8080" {
		t.Errorf("BaseURL() = %q", got.BaseURL())
	}

	inst.Release()
	if _, err := os.Stat(filepath.Join(dir, recordFileName)); !os.IsNotExist(err) {
		t.Error("record should be removed after Release")
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() after Release error = %v", err)
	}
	again.Release()
}

func TestReadRecordRejectsEmptyAddr(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, recordFileName), []byte(`{"session":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadRecord(dir); err == nil {
		t.Error("ReadRecord() should reject a record without an address")
	}
}

func TestReleaseNil(t *testing.T) {
	var inst *Instance
	inst.Release()
}
