// Package logcapture buffers per-request logs and context so a failure
// email can carry a complete report of what happened.
package logcapture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// sensitiveHeaders are redacted from captured request data.
var sensitiveHeaders = map[string]bool{
	"x-functions-key":       true,
	"authorization":         true,
	"x-api-key":             true,
	"cookie":                true,
	"x-ms-client-principal": true,
}

// Entry is one captured log record.
type Entry struct {
	Time    time.Time `json:"timestamp"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// ErrorInfo captures a failure with its stack and context.
type ErrorInfo struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Stack   string         `json:"stack"`
	Context map[string]any `json:"context,omitempty"`
	Time    time.Time      `json:"timestamp"`
}

// Capture collects log entries, request data, and error info for a single
// request. Safe for concurrent use; one Capture per request.
type Capture struct {
	mu       sync.Mutex
	start    time.Time
	entries  []Entry
	body     map[string]any
	headers  map[string]string
	errInfo  *ErrorInfo
}

// New creates an empty Capture with the clock started.
func New() *Capture {
	return &Capture{start: time.Now().UTC()}
}

// Add appends a log entry to the buffer.
func (c *Capture) Add(level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{
		Time:    time.Now().UTC(),
		Level:   level,
		Message: message,
	})
}

// SetRequestData records the request body and sanitized headers.
func (c *Capture) SetRequestData(body map[string]any, headers http.Header) {
	sanitized := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = "[REDACTED]"
		} else {
			sanitized[key] = values[0]
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.body = body
	c.headers = sanitized
}

// SetError records the failure with a stack trace and optional context.
func (c *Capture) SetError(err error, errContext map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errInfo = &ErrorInfo{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Stack:   string(debug.Stack()),
		Context: errContext,
		Time:    time.Now().UTC(),
	}
}

// Entries returns a copy of the captured log entries.
func (c *Capture) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Handler wraps next so every record that passes through is also captured.
func (c *Capture) Handler(next slog.Handler) slog.Handler {
	return &teeHandler{next: next, capture: c}
}

// teeHandler forwards records to the wrapped handler and appends them to
// the capture buffer.
type teeHandler struct {
	next    slog.Handler
	capture *Capture
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	// Capture everything; the wrapped handler applies its own level.
	return true
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Message)
	record.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
		return true
	})
	h.capture.Add(record.Level.String(), b.String())

	if h.next.Enabled(ctx, record.Level) {
		return h.next.Handle(ctx, record)
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{next: h.next.WithAttrs(attrs), capture: h.capture}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{next: h.next.WithGroup(name), capture: h.capture}
}

// MarkdownReport renders everything captured so far as a markdown failure
// report suitable for the failure notification email.
func (c *Capture) MarkdownReport() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	var md strings.Builder

	md.WriteString("# Summarization Failure Report\n\n")
	fmt.Fprintf(&md, "**Generated:** %s\n\n", now.Format(time.RFC3339))
	fmt.Fprintf(&md, "**Duration:** %.2f seconds\n\n", now.Sub(c.start).Seconds())
	md.WriteString("---\n\n")

	md.WriteString("## Request Information\n\n")
	if c.body != nil || len(c.headers) > 0 {
		if c.body != nil {
			md.WriteString("### Request Body\n\n```json\n")
			md.WriteString(marshalIndent(c.body))
			md.WriteString("\n```\n\n")
		}
		if len(c.headers) > 0 {
			md.WriteString("### Request Headers\n\n```json\n")
			md.WriteString(marshalIndent(c.headers))
			md.WriteString("\n```\n\n")
		}
	} else {
		md.WriteString("*No request data captured*\n\n")
	}

	md.WriteString("## Error Information\n\n")
	if c.errInfo != nil {
		fmt.Fprintf(&md, "**Error Type:** `%s`\n\n", c.errInfo.Type)
		fmt.Fprintf(&md, "**Error Message:**\n\n```\n%s\n```\n\n", c.errInfo.Message)
		if len(c.errInfo.Context) > 0 {
			md.WriteString("**Error Context:**\n\n```json\n")
			md.WriteString(marshalIndent(c.errInfo.Context))
			md.WriteString("\n```\n\n")
		}
		fmt.Fprintf(&md, "**Stack Trace:**\n\n```\n%s\n```\n\n", c.errInfo.Stack)
	} else {
		md.WriteString("*No error information captured*\n\n")
	}

	md.WriteString("## Runtime Logs\n\n")
	if len(c.entries) > 0 {
		md.WriteString("| Timestamp | Level | Message |\n")
		md.WriteString("|-----------|-------|---------|\n")
		for _, entry := range c.entries {
			message := strings.ReplaceAll(entry.Message, "\n", " ")
			message = strings.ReplaceAll(message, "|", "\\|")
			if len(message) > 100 {
				message = message[:100]
			}
			fmt.Fprintf(&md, "| %s | %s | %s |\n", entry.Time.Format("15:04:05.000"), entry.Level, message)
		}
		md.WriteString("\n")
	} else {
		md.WriteString("*No logs captured*\n\n")
	}

	md.WriteString("---\n\n*This report was generated automatically by the failure notification system.*\n")
	return md.String()
}

func marshalIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
