package notify

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.AppName != "ytsum" {
		t.Errorf("expected app name 'ytsum', got %s", config.AppName)
	}
	if config.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", config.Timeout)
	}
}

// TestNewNotifier verifies that New creates a notifier.
func TestNewNotifier(t *testing.T) {
	notifier, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create notifier: %v", err)
	}
	if notifier == nil {
		t.Fatal("expected notifier, got nil")
	}
	if !notifier.IsAvailable() {
		t.Error("expected beeep notifier to report available")
	}

	if err := notifier.Close(); err != nil {
		t.Errorf("failed to close notifier: %v", err)
	}
}

// mockNotifier is a test implementation of Notifier.
type mockNotifier struct {
	sendCalled bool
	lastNotif  Notification
	available  bool
	closed     bool
}

func (m *mockNotifier) Send(_ context.Context, notification Notification) error {
	m.sendCalled = true
	m.lastNotif = notification
	if !m.available {
		return ErrNotAvailable
	}
	return nil
}

func (m *mockNotifier) IsAvailable() bool {
	return m.available
}

func (m *mockNotifier) Close() error {
	m.closed = true
	return nil
}

func TestMockNotifier(t *testing.T) {
	mock := &mockNotifier{available: true}
	ctx := context.Background()

	notif := Notification{
		Title:    "A Video",
		Message:  "Summary ready",
		Severity: "info",
		URL:      "https://www.notion.so/page-1",
	}
	if err := mock.Send(ctx, notif); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !mock.sendCalled {
		t.Error("expected Send to be called")
	}
	if mock.lastNotif.Title != "A Video" {
		t.Errorf("expected title 'A Video', got %s", mock.lastNotif.Title)
	}

	if err := mock.Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !mock.closed {
		t.Error("expected Close to be called")
	}
}

func TestMockNotifierUnavailable(t *testing.T) {
	mock := &mockNotifier{available: false}

	err := mock.Send(context.Background(), Notification{Title: "Test", Message: "msg"})
	if err != ErrNotAvailable {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}
}
