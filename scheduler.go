package guardcall

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Action performs the escalation for a subject. It captures everything it
// needs (notifier, destination, payload) at schedule time and is invoked at
// most once, on the scheduler's own goroutine, never while the registry lock
// is held. The context is cancelled when the scheduler closes.
type Action func(ctx context.Context) error

// Structural scheduling errors, returned synchronously and never partially
// applied.
var (
	ErrEmptySubject    = errors.New("guardcall: empty subject")
	ErrNegativeDelay   = errors.New("guardcall: negative delay")
	ErrNilAction       = errors.New("guardcall: nil action")
	ErrSchedulerClosed = errors.New("guardcall: scheduler closed")
)

// MetricsHook defines hooks for monitoring schedule, cancel, and fire events.
// OnFireError reports an action that ran but failed; such failures are
// terminal for the ticket and are never retried by the scheduler.
type MetricsHook interface {
	OnSchedule(t *Ticket)
	OnCancel(t *Ticket)
	OnFire(t *Ticket)
	OnFireError(t *Ticket, err error)
}

// Scheduler maintains a registry of at most one pending escalation per
// subject and supports the following operations:
//
//   - Schedule an action to run after a delay, superseding any pending
//     escalation for the same subject
//   - Cancel the pending escalation for a subject
//   - Close, cancelling all pending escalations and draining in-flight
//     actions
//
// Operations on different subjects never block one another: the registry
// mutex is held only for map mutation, and actions execute outside it.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*Ticket
	closed  bool

	// Base context for action execution, cancelled on Close.
	ctx    context.Context
	cancel context.CancelFunc

	// Counts timer goroutines and in-flight actions so Close can drain.
	wg sync.WaitGroup

	logger  *slog.Logger
	metrics MetricsHook
}

// New creates a new [Scheduler] with the given options.
func New(opts ...Option) *Scheduler {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		entries: make(map[string]*Ticket),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		metrics: o.Metrics,
	}
}

// Schedule arms a timer to invoke action after delay, keyed by subject. If a
// pending escalation already exists for the subject it is superseded: its
// timer is disarmed and its entry replaced before the new one is installed,
// so only the newest scheduled action can ever fire.
//
// The returned [Ticket] identifies the scheduled escalation for logging and
// observation. It carries no guarantee that the action will ever run.
func (s *Scheduler) Schedule(subject string, delay time.Duration, action Action) (*Ticket, error) {
	if subject == "" {
		return nil, ErrEmptySubject
	}
	if delay < 0 {
		return nil, ErrNegativeDelay
	}
	if action == nil {
		return nil, ErrNilAction
	}

	t := &Ticket{
		subject:  subject,
		fireAt:   time.Now().Add(delay),
		action:   action,
		cancelCh: make(chan struct{}),
		firedCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSchedulerClosed
	}
	prev := s.entries[subject]
	s.entries[subject] = t
	s.wg.Add(1)
	s.mu.Unlock()

	if prev != nil {
		prev.resolve(false)
		if s.metrics != nil {
			s.metrics.OnCancel(prev)
		}
	}

	if s.metrics != nil {
		s.metrics.OnSchedule(t)
	}

	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			s.fire(t)
		case <-t.cancelCh:
		case <-s.ctx.Done():
		}
	}()

	return t, nil
}

// Cancel removes the pending escalation for subject, if any, and disarms its
// timer. It returns true if a pending escalation was cancelled, false if none
// existed — already fired, already superseded, or never scheduled. A false
// result is a normal outcome, not an error: an acknowledgment may simply have
// arrived after the escalation resolved.
func (s *Scheduler) Cancel(subject string) bool {
	if subject == "" {
		return false
	}

	s.mu.Lock()
	t, ok := s.entries[subject]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, subject)
	s.mu.Unlock()

	t.resolve(false)
	if s.metrics != nil {
		s.metrics.OnCancel(t)
	}
	return true
}

// fire runs when t's timer elapses. The registry entry must still be this
// exact ticket; a missing or replaced entry means a cancellation or a newer
// schedule won the race, and the fire is a no-op. The action runs outside the
// lock so slow delivery never blocks Schedule or Cancel, for any subject.
func (s *Scheduler) fire(t *Ticket) {
	s.mu.Lock()
	cur, ok := s.entries[t.subject]
	if !ok || cur != t {
		s.mu.Unlock()
		return
	}
	delete(s.entries, t.subject)
	s.mu.Unlock()

	t.resolve(true)
	if s.metrics != nil {
		s.metrics.OnFire(t)
	}

	if err := t.action(s.ctx); err != nil {
		// Terminal for this ticket. Retry policy, if any, belongs to the
		// notifier or a higher-level caller.
		s.logger.Error("escalation action failed", "subject", t.subject, "err", err)
		if s.metrics != nil {
			s.metrics.OnFireError(t, err)
		}
	}
}

// Pending reports whether subject currently has a pending escalation.
func (s *Scheduler) Pending(subject string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[subject]
	return ok
}

// Len returns the number of pending escalations across all subjects.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close cancels every pending escalation, stops their timers, and waits for
// any in-flight actions to return. Subsequent Schedule calls fail with
// [ErrSchedulerClosed]; Cancel remains safe and returns false. Close is
// idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := make([]*Ticket, 0, len(s.entries))
	for _, t := range s.entries {
		pending = append(pending, t)
	}
	clear(s.entries)
	s.mu.Unlock()

	for _, t := range pending {
		t.resolve(false)
		if s.metrics != nil {
			s.metrics.OnCancel(t)
		}
	}

	s.cancel()
	s.wg.Wait()
}
