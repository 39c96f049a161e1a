// Package notify delivers alert messages to one or more channels. The
// Notifier fans a message out to every registered sender; one channel's
// failure does not prevent delivery to the rest.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers one already-formatted message body.
	Send(ctx context.Context, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches messages to all registered senders.
type Notifier struct {
	senders []Sender
	log     *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders.
func NewNotifier(log *slog.Logger, senders ...Sender) *Notifier {
	return &Notifier{
		senders: senders,
		log:     log.With("component", "notifier"),
	}
}

// Send fans the message out to every sender. Errors from individual senders
// are collected and returned as a combined error after all senders ran.
func (n *Notifier) Send(ctx context.Context, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, message); err != nil {
			n.log.ErrorContext(ctx, "sender failed", "sender", s.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.log.DebugContext(ctx, "alert delivered", "sender", s.Name())
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}

	return nil
}
