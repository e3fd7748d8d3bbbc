// Package notify alerts a human operator when a session escalates.
package notify

import "context"

// Notifier delivers an escalation alert. Failures are logged by the
// caller and never block the conversation.
type Notifier interface {
	Escalation(ctx context.Context, sessionID, reason string) error
}

// Noop discards every notification. Used when no channel is configured.
type Noop struct{}

func (Noop) Escalation(context.Context, string, string) error { return nil }
