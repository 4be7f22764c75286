package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerInvalidLevel(t *testing.T) {
	if _, err := NewLogger(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewLoggerWritesComponentTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walletkit.log")
	logger, err := NewLogger(Options{Level: "debug", File: path, Colors: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.ComponentInfo(ComponentSIWE, "session created")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "[SIWE] session created") {
		t.Errorf("missing component tag in %q", line)
	}
	if strings.Contains(line, "\033[") {
		t.Errorf("file output must not contain color codes: %q", line)
	}
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	if l == nil || l.Logger == nil {
		t.Fatal("OrNop(nil) returned nil logger")
	}
	l.ComponentDebug(ComponentHooks, "discarded")
}
