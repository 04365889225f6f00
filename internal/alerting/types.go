package alerting

import (
	"context"
	"errors"
	"time"
)

// Worker is a person wearing a monitored helmet. The helmet ID doubles as the
// escalation subject key: it uniquely identifies at most one open alert
// context at a time.
type Worker struct {
	HelmetID          string `json:"helmet_id"`
	Name              string `json:"name"`
	PhoneNumber       string `json:"phone_number"`
	FamilyPhoneNumber string `json:"family_phone_number"`
}

// Alert is a safety alert raised for a worker, optionally acknowledged later.
type Alert struct {
	ID             string     `json:"id"`
	HelmetID       string     `json:"helmet_id"`
	Message        string     `json:"message"`
	Lat            float64    `json:"lat"`
	Lng            float64    `json:"lng"`
	RaisedAt       time.Time  `json:"raised_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// Acknowledged returns true if the alert has been acknowledged.
func (a *Alert) Acknowledged() bool {
	return a.AcknowledgedAt != nil
}

var (
	ErrWorkerNotFound = errors.New("alerting: worker not found")
	ErrAlertNotFound  = errors.New("alerting: alert not found")
)

// Store persists workers and alerts. Saving an unacknowledged alert marks it
// as the open alert for its helmet; saving an acknowledged one clears that
// mark.
type Store interface {
	SaveWorker(ctx context.Context, w *Worker) error
	Worker(ctx context.Context, helmetID string) (*Worker, error)
	Workers(ctx context.Context) ([]*Worker, error)

	SaveAlert(ctx context.Context, a *Alert) error
	OpenAlert(ctx context.Context, helmetID string) (*Alert, error)
}
