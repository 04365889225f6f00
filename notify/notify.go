// Package notify provides the outbound delivery capability consumed by
// callers of the escalation scheduler: an immediate notification (an SMS) and
// a higher-urgency escalation (a voice call).
package notify

import (
	"context"
	"fmt"
)

// Notifier performs the actual side-effecting communication. The scheduler
// itself never sees this interface; escalation actions close over a Notifier
// and a destination at schedule time.
type Notifier interface {
	// SendImmediate delivers an immediate notification to the destination
	// phone number.
	SendImmediate(ctx context.Context, to, body string) error

	// SendEscalation places a higher-urgency voice call to the destination
	// phone number. voiceURL is the webhook the telephony provider fetches
	// for call instructions.
	SendEscalation(ctx context.Context, to, voiceURL string) error
}

// DeliveryError reports a failed delivery attempt. Deliveries are not retried
// by the scheduler; a retrying Notifier may be layered on top.
type DeliveryError struct {
	Op         string // "sms" or "call"
	To         string
	StatusCode int
	Message    string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: %s to %s failed: %d %s", e.Op, e.To, e.StatusCode, e.Message)
}
