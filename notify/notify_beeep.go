package notify

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

// beeepNotifier implements Notifier using the cross-platform beeep library.
type beeepNotifier struct {
	config Config
}

func newBeeepNotifier(config Config) (Notifier, error) {
	return &beeepNotifier{
		config: config,
	}, nil
}

// Send sends a notification using beeep.
func (n *beeepNotifier) Send(_ context.Context, notification Notification) error {
	title := notification.Title
	if title == "" {
		title = n.config.AppName
	}
	if err := beeep.Notify(title, notification.Message, ""); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

// IsAvailable returns true since beeep handles platform detection internally.
func (n *beeepNotifier) IsAvailable() bool {
	return true
}

// Close is a no-op for beeep.
func (n *beeepNotifier) Close() error {
	return nil
}
