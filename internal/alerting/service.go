// Package alerting orchestrates the alert lifecycle: immediate notification
// fan-out when an alert is raised, a delayed voice-call escalation keyed by
// helmet ID, and cancellation plus all-clear messages on acknowledgment.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tomasbasham/guardcall"
	"github.com/tomasbasham/guardcall/notify"
)

// Escalator is the slice of the scheduler the service uses. Satisfied by
// *guardcall.Scheduler; faked in tests.
type Escalator interface {
	Schedule(subject string, delay time.Duration, action guardcall.Action) (*guardcall.Ticket, error)
	Cancel(subject string) bool
}

// Config carries the caller-side escalation settings: the scheduler itself
// knows nothing of delays, destinations, or payloads beyond the action
// closure it is handed.
type Config struct {
	// EscalationDelay is the grace period before the voice call is placed.
	EscalationDelay time.Duration

	// BaseURL is the public address of this service; the telephony provider
	// fetches call instructions from BaseURL + "/voice/alert".
	BaseURL string

	// DefaultCountryCode is prepended to phone numbers lacking a "+" prefix.
	DefaultCountryCode string
}

// Service wires the store, notifier, and escalation scheduler together.
type Service struct {
	store     Store
	notifier  notify.Notifier
	escalator Escalator
	logger    *slog.Logger
	cfg       Config
}

// NewService creates the alerting service.
func NewService(store Store, notifier notify.Notifier, escalator Escalator, logger *slog.Logger, cfg Config) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		escalator: escalator,
		logger:    logger,
		cfg:       cfg,
	}
}

// RegisterWorker validates and persists a worker.
func (s *Service) RegisterWorker(ctx context.Context, w *Worker) error {
	if w.HelmetID == "" {
		return fmt.Errorf("alerting: worker requires a helmet ID")
	}
	if err := s.store.SaveWorker(ctx, w); err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

// RaiseAlert records a new alert for the worker wearing helmetID, notifies
// the worker's family and co-workers immediately, and schedules the voice
// call escalation. Notification failures are logged but do not fail the
// alert: the alert record and the escalation matter more than any single SMS.
func (s *Service) RaiseAlert(ctx context.Context, helmetID, message string, lat, lng float64) (*Alert, error) {
	worker, err := s.store.Worker(ctx, helmetID)
	if err != nil {
		return nil, err
	}

	alert := &Alert{
		ID:       uuid.NewString(),
		HelmetID: helmetID,
		Message:  message,
		Lat:      lat,
		Lng:      lng,
		RaisedAt: time.Now().UTC(),
	}
	if err := s.store.SaveAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to save alert: %w", err)
	}

	body := alertBody(worker, alert)

	family := normalizePhone(worker.FamilyPhoneNumber, s.cfg.DefaultCountryCode)
	if family != "" {
		if err := s.notifier.SendImmediate(ctx, family, body); err != nil {
			s.logger.Error("family alert sms failed", "helmet_id", helmetID, "err", err)
		}
	}

	s.notifyCoworkers(ctx, worker, body)

	if family != "" {
		s.scheduleEscalation(helmetID, family)
	}

	s.logger.Info("alert raised", "helmet_id", helmetID, "alert_id", alert.ID)
	return alert, nil
}

// scheduleEscalation arms the delayed voice call for helmetID. The action
// captures the destination and webhook URL now; they are not re-resolved when
// the timer elapses.
func (s *Service) scheduleEscalation(helmetID, family string) {
	voiceURL := s.cfg.BaseURL + "/voice/alert"

	_, err := s.escalator.Schedule(helmetID, s.cfg.EscalationDelay, func(ctx context.Context) error {
		return s.notifier.SendEscalation(ctx, family, voiceURL)
	})
	if err != nil {
		s.logger.Error("failed to schedule voice call", "helmet_id", helmetID, "err", err)
		return
	}
	s.logger.Info("voice call scheduled", "helmet_id", helmetID, "delay", s.cfg.EscalationDelay)
}

// Acknowledge resolves the open alert for helmetID: cancels the pending voice
// call if it has not fired yet, and sends all-clear messages to family and
// co-workers. A cancel miss means the call already went out; the alert is
// still marked acknowledged.
func (s *Service) Acknowledge(ctx context.Context, helmetID string) (*Alert, error) {
	alert, err := s.store.OpenAlert(ctx, helmetID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	alert.AcknowledgedAt = &now
	if err := s.store.SaveAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to save alert: %w", err)
	}

	if cancelled := s.escalator.Cancel(helmetID); cancelled {
		s.logger.Info("voice call cancelled", "helmet_id", helmetID)
	} else {
		s.logger.Info("no pending voice call to cancel", "helmet_id", helmetID)
	}

	worker, err := s.store.Worker(ctx, helmetID)
	if err != nil {
		return alert, nil // acknowledged; nobody left to notify.
	}

	family := normalizePhone(worker.FamilyPhoneNumber, s.cfg.DefaultCountryCode)
	if family != "" {
		if err := s.notifier.SendImmediate(ctx, family, safeFamilyBody(worker)); err != nil {
			s.logger.Error("family safe sms failed", "helmet_id", helmetID, "err", err)
		}
	}

	s.notifyCoworkers(ctx, worker, safeCoworkerBody(worker, alert))

	s.logger.Info("alert acknowledged", "helmet_id", helmetID, "alert_id", alert.ID)
	return alert, nil
}

// notifyCoworkers sends body to every registered worker except the subject.
func (s *Service) notifyCoworkers(ctx context.Context, subject *Worker, body string) {
	workers, err := s.store.Workers(ctx)
	if err != nil {
		s.logger.Error("failed to list co-workers", "err", err)
		return
	}

	for _, w := range workers {
		if w.HelmetID == subject.HelmetID {
			continue
		}
		to := normalizePhone(w.PhoneNumber, s.cfg.DefaultCountryCode)
		if to == "" {
			continue
		}
		if err := s.notifier.SendImmediate(ctx, to, body); err != nil {
			s.logger.Error("co-worker sms failed", "helmet_id", w.HelmetID, "err", err)
		}
	}
}
