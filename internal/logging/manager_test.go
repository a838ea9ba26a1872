// pattern: Imperative Shell

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := Config{
		FilePath:   logFile,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 7,
		Level:      "debug",
	}

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer func() { _ = mgr.Close() }()

	// File may not exist until first write, that's OK
	_, _ = os.Stat(logFile)

	// Verify entries channel is available
	if mgr.Entries() == nil {
		t.Error("Entries() returned nil")
	}
}

func TestManager_For(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := Config{
		FilePath:   logFile,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 7,
		Level:      "debug",
	}

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer func() { _ = mgr.Close() }()

	// Get named logger
	logger := mgr.For("seat.seat0")
	if logger == nil {
		t.Fatal("For() returned nil")
	}

	// Same scope should return same logger (cached)
	logger2 := mgr.For("seat.seat0")
	if logger != logger2 {
		t.Error("For() should return cached logger for same scope")
	}

	// Different scope should return different logger
	logger3 := mgr.For("seat.seat1")
	if logger == logger3 {
		t.Error("For() should return different logger for different scope")
	}
}

func TestManager_LoggingToChannel(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := Config{
		FilePath:       logFile,
		MaxSizeMB:      10,
		MaxBackups:     5,
		MaxAgeDays:     7,
		Level:          "debug",
		ChannelBufSize: 100,
	}

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer func() { _ = mgr.Close() }()

	// Log a message
	logger := mgr.For("test.component")
	logger.Info("test message", "key", "value")

	// Sync to ensure write completes
	_ = mgr.Sync()

	// Check channel received entry (non-blocking since Sync already completed)
	select {
	case entry := <-mgr.Entries():
		if entry.Message != "test message" {
			t.Errorf("Message = %q, want %q", entry.Message, "test message")
		}
		if entry.Scope != "test.component" {
			t.Errorf("Scope = %q, want %q", entry.Scope, "test.component")
		}
	default:
		t.Fatal("entry not received on channel after Sync()")
	}
}

func TestManager_LoggingToFile(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := Config{
		FilePath:   logFile,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 7,
		Level:      "debug",
	}

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	// Log a message
	logger := mgr.For("file.test")
	logger.Info("file test message")

	// Close to flush
	_ = mgr.Close()

	// Check file contains entry
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "file test message") {
		t.Errorf("log file should contain message, got: %s", content)
	}
	if !strings.Contains(content, "file.test") {
		t.Errorf("log file should contain scope, got: %s", content)
	}
}

func TestManager_Cleanup(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := Config{
		FilePath:   logFile,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 7,
		Level:      "debug",
	}

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer func() { _ = mgr.Close() }()

	// Create some loggers
	mgr.For("process.bar")
	mgr.For("process.autostart")
	mgr.For("ipc.session")

	// Cleanup the bar supervisor's scope
	mgr.Cleanup("process.bar")

	// process.bar should be removed from cache
	// But we can't easily test internal cache state without exporting it
	// Just verify no panic and logger still works after cleanup
	logger := mgr.For("process.bar")
	logger.Info("after cleanup")
}

func TestManager_FileRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "rotate.log")

	// Use tiny max size to trigger rotation
	cfg := Config{
		FilePath:   logFile,
		MaxSizeMB:  1, // 1MB - smallest practical size
		MaxBackups: 2,
		MaxAgeDays: 7,
		Level:      "debug",
	}

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer func() { _ = mgr.Close() }()

	logger := mgr.For("rotation.test")

	// Write enough data to potentially trigger rotation
	// This is more of a smoke test - actual rotation happens at file level
	bigMessage := string(make([]byte, 1000))
	for i := range 100 {
		logger.Info(bigMessage, "iteration", i)
	}

	_ = mgr.Sync()

	// Verify file exists
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("log file should exist after writing")
	}
}

func TestManager_SetLevel(t *testing.T) {
	mgr, err := NewManager(Config{
		FilePath: filepath.Join(t.TempDir(), "level.log"),
		Level:    "info",
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer func() { _ = mgr.Close() }()

	logger := mgr.For("txn")
	logger.Debug("hidden")
	mgr.SetLevel("debug")
	if got := mgr.Level(); got != "debug" {
		t.Errorf("Level() = %q, want %q", got, "debug")
	}
	logger.Debug("shown")

	select {
	case got := <-mgr.Entries():
		if got.Message != "shown" {
			t.Errorf("first entry: got %q, want %q", got.Message, "shown")
		}
	case <-time.After(time.Second):
		t.Fatal("no entry after raising verbosity")
	}

	mgr.SetLevel("bogus")
	if got := mgr.Level(); got != "info" {
		t.Errorf("Level() after unknown name = %q, want %q", got, "info")
	}
}
