package logcapture

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerTeesRecords(t *testing.T) {
	capture := New()
	var out bytes.Buffer
	logger := slog.New(capture.Handler(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo})))

	logger.Info("processing url", "video_id", "dQw4w9WgXcQ")
	logger.Debug("noisy detail")
	logger.Error("gemini call failed")

	entries := capture.Entries()
	require.Len(t, entries, 3, "capture keeps all levels regardless of the wrapped handler")
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Contains(t, entries[0].Message, "video_id=dQw4w9WgXcQ")
	assert.Equal(t, "ERROR", entries[2].Level)

	assert.Contains(t, out.String(), "processing url")
	assert.NotContains(t, out.String(), "noisy detail", "wrapped handler still filters by level")
}

func TestSetRequestDataRedactsSensitiveHeaders(t *testing.T) {
	capture := New()
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Functions-Key", "super-secret")
	headers.Set("Authorization", "Bearer token")
	headers.Set("Cookie", "session=abc")

	capture.SetRequestData(map[string]any{"url": "https://youtu.be/dQw4w9WgXcQ"}, headers)

	report := capture.MarkdownReport()
	assert.Contains(t, report, "[REDACTED]")
	assert.NotContains(t, report, "super-secret")
	assert.NotContains(t, report, "Bearer token")
	assert.NotContains(t, report, "session=abc")
	assert.Contains(t, report, "application/json")
	assert.Contains(t, report, "https://youtu.be/dQw4w9WgXcQ")
}

func TestMarkdownReport(t *testing.T) {
	capture := New()
	capture.Add("INFO", "started")
	capture.Add("ERROR", "pipe | broke\nacross lines")
	capture.SetError(errors.New("gemini API request failed: HTTP 500"), map[string]any{"video_id": "dQw4w9WgXcQ"})

	report := capture.MarkdownReport()

	assert.Contains(t, report, "# Summarization Failure Report")
	assert.Contains(t, report, "**Error Type:**")
	assert.Contains(t, report, "gemini API request failed: HTTP 500")
	assert.Contains(t, report, "video_id")
	assert.Contains(t, report, "| Timestamp | Level | Message |")
	assert.Contains(t, report, `pipe \| broke across lines`, "table cells escape pipes and newlines")
	assert.Contains(t, report, "Stack Trace")
}

func TestMarkdownReportEmpty(t *testing.T) {
	report := New().MarkdownReport()
	assert.Contains(t, report, "*No request data captured*")
	assert.Contains(t, report, "*No error information captured*")
	assert.Contains(t, report, "*No logs captured*")
}
