package logging

import (
	"log/slog"
	"testing"
)

func resetForTest() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetForTest()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"render": "debug",
			"conn":   "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
	}{
		{"render", true, true},
		{"conn", false, false},
		{"audio", false, true},
	}

	for _, tt := range tests {
		logger := GetLogger(tt.module)
		if got := logger.Enabled(nil, slog.LevelDebug); got != tt.wantDebug {
			t.Errorf("module %q: debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
		}
		if got := logger.Enabled(nil, slog.LevelInfo); got != tt.wantInfo {
			t.Errorf("module %q: info enabled = %v, want %v", tt.module, got, tt.wantInfo)
		}
	}
}

func TestReloadChangesExistingLoggerLevel(t *testing.T) {
	resetForTest()

	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("proto")
	if logger.Enabled(nil, slog.LevelDebug) {
		t.Fatal("proto logger should start at info")
	}

	Reload(Config{Level: "info", Modules: map[string]string{"proto": "debug"}})

	if !logger.Enabled(nil, slog.LevelDebug) {
		t.Error("proto logger should log debug after reload")
	}
}

func TestRingBufferCapturesEntries(t *testing.T) {
	resetForTest()

	Initialize(Config{Level: "info", Format: "text"})

	before := GetBuffer().Count()
	GetLogger("credstore").Info("record saved", "ssid", "lab")

	entries := GetBuffer().ReadAll()
	if len(entries) <= before {
		t.Fatalf("expected new buffer entry, count %d -> %d", before, len(entries))
	}

	last := entries[len(entries)-1]
	if last.Module != "credstore" {
		t.Errorf("entry module = %q, want credstore", last.Module)
	}
	if last.Attributes["ssid"] != "lab" {
		t.Errorf("entry ssid attr = %v, want lab", last.Attributes["ssid"])
	}
}

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Write(LogEntry{Message: string(rune('a' + i))})
	}

	entries := rb.ReadAll()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Message != "c" || entries[2].Message != "e" {
		t.Errorf("unexpected order: %q..%q", entries[0].Message, entries[2].Message)
	}
}
