// Package notify shows a desktop notification when a summarization
// finishes, for one-shot CLI runs that can take minutes.
package notify

import (
	"context"
	"errors"
	"time"
)

// Notification represents a notification to be displayed.
type Notification struct {
	// Title is the notification title (typically the video title)
	Title string

	// Message is the notification body
	Message string

	// Severity indicates the notification severity
	Severity string // "critical", "warning", "info"

	// Timestamp when the notification was created
	Timestamp time.Time

	// URL to open when notification is clicked (optional)
	URL string
}

// Notifier is the interface for desktop notification systems.
type Notifier interface {
	// Send sends a notification to the OS notification system.
	Send(ctx context.Context, notification Notification) error

	// IsAvailable returns true if OS notifications are available and permitted.
	IsAvailable() bool

	// Close cleans up notification system resources.
	Close() error
}

// Config contains notification system configuration.
type Config struct {
	// AppName is the application name shown in notifications
	AppName string

	// Timeout for notification operations
	Timeout time.Duration
}

// DefaultConfig returns default notification configuration.
func DefaultConfig() Config {
	return Config{
		AppName: "ytsum",
		Timeout: 5 * time.Second,
	}
}

// New creates a new notifier.
func New(config Config) (Notifier, error) {
	return newBeeepNotifier(config)
}

var (
	ErrNotAvailable       = errors.New("OS notifications not available")
	ErrNotificationFailed = errors.New("failed to send notification")
)
