package logutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSetupTextOutput(t *testing.T) {
	if err := Setup(Config{Level: "info", Format: "text"}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	slog.Info("hello", "key", "value")
	slog.Debug("hidden")

	out := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("expected info output, got %q", out)
	}
	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Errorf("debug output should be filtered at info level, got %q", out)
	}
}

func TestSetupJSONOutput(t *testing.T) {
	if err := Setup(Config{Level: "debug", Format: "json"}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	slog.Debug("structured message")

	if !bytes.Contains(buf.Bytes(), []byte(`"msg":"structured message"`)) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestSetupFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "ytsum.log")

	if err := Setup(Config{Level: "info", File: logFile, MaxSizeMB: 1}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer func() { _ = Setup(Config{}) }()

	slog.Info("written to file")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !bytes.Contains(data, []byte("written to file")) {
		t.Errorf("expected log entry in file, got %q", string(data))
	}
}

func TestDebugEnvOverride(t *testing.T) {
	t.Setenv(EnvDebug, "true")

	if err := Setup(Config{Level: "info"}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer func() { _ = Setup(Config{}) }()

	if !IsDebugEnabled() {
		t.Error("YTSUM_DEBUG=true should force debug level")
	}
}
