package guardcall

import "time"

// Ticket represents one scheduled escalation: created by
// [Scheduler.Schedule], resolved exactly once as either fired (the action
// ran) or cancelled (the action never runs). The subject and deadline are
// immutable for the ticket's lifetime.
type Ticket struct {
	subject string
	fireAt  time.Time
	action  Action

	cancelCh chan struct{} // closed when cancelled or superseded; disarms the timer.
	firedCh  chan struct{} // closed when the fire check succeeds.
	doneCh   chan struct{} // closed on either terminal state.
}

// Subject returns the subject key the escalation is scoped to.
func (t *Ticket) Subject() string {
	return t.subject
}

// FireAt returns the deadline at which the action executes if not cancelled
// first.
func (t *Ticket) FireAt() time.Time {
	return t.fireAt
}

// Fired returns true if the escalation fired.
func (t *Ticket) Fired() bool {
	select {
	case <-t.firedCh:
		return true
	default:
		return false
	}
}

// Done returns true once the ticket has reached a terminal state, fired or
// cancelled.
func (t *Ticket) Done() bool {
	select {
	case <-t.doneCh:
		return true
	default:
		return false
	}
}

// resolve marks the ticket's single terminal transition. Exactly one caller
// may resolve a ticket: whichever of the fire check, Cancel, supersede, or
// Close removed its registry entry.
func (t *Ticket) resolve(fired bool) {
	if fired {
		close(t.firedCh)
	} else {
		close(t.cancelCh)
	}
	close(t.doneCh)
}
