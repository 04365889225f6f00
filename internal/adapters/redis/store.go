// Package redis implements alerting.Store on Redis. Workers and alerts are
// stored as JSON values; a per-helmet pointer tracks the open (unacknowledged)
// alert so acknowledgments can be keyed by helmet ID.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/tomasbasham/guardcall/internal/alerting"
)

// Store implements alerting.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
}

var _ alerting.Store = (*Store)(nil)

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "guardcall:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) workerKey(helmetID string) string { return s.prefix + "worker:" + helmetID }
func (s *Store) workerIndexKey() string           { return s.prefix + "workers" }
func (s *Store) alertKey(alertID string) string   { return s.prefix + "alert:" + alertID }
func (s *Store) openKey(helmetID string) string   { return s.prefix + "open:" + helmetID }

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveWorker persists the worker and adds it to the worker index.
func (s *Store) SaveWorker(ctx context.Context, w *alerting.Worker) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal worker: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.workerKey(w.HelmetID), data, 0)
	pipe.SAdd(ctx, s.workerIndexKey(), w.HelmetID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save worker to redis: %w", err)
	}
	return nil
}

// Worker retrieves a worker by helmet ID.
func (s *Store) Worker(ctx context.Context, helmetID string) (*alerting.Worker, error) {
	val, err := s.client.Get(ctx, s.workerKey(helmetID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, alerting.ErrWorkerNotFound
		}
		return nil, fmt.Errorf("failed to get worker from redis: %w", err)
	}

	var w alerting.Worker
	if err := json.Unmarshal([]byte(val), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal worker: %w", err)
	}
	return &w, nil
}

// Workers lists all registered workers.
func (s *Store) Workers(ctx context.Context) ([]*alerting.Worker, error) {
	ids, err := s.client.SMembers(ctx, s.workerIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workers from redis: %w", err)
	}

	workers := make([]*alerting.Worker, 0, len(ids))
	for _, id := range ids {
		w, err := s.Worker(ctx, id)
		if err != nil {
			if err == alerting.ErrWorkerNotFound {
				continue // index entry without a record; skip.
			}
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, nil
}

// SaveAlert persists the alert. Unacknowledged alerts become the open alert
// for their helmet; acknowledged ones clear that pointer.
func (s *Store) SaveAlert(ctx context.Context, a *alerting.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.alertKey(a.ID), data, 0)
	if a.Acknowledged() {
		pipe.Del(ctx, s.openKey(a.HelmetID))
	} else {
		pipe.Set(ctx, s.openKey(a.HelmetID), a.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save alert to redis: %w", err)
	}
	return nil
}

// OpenAlert retrieves the open alert for a helmet, if any.
func (s *Store) OpenAlert(ctx context.Context, helmetID string) (*alerting.Alert, error) {
	id, err := s.client.Get(ctx, s.openKey(helmetID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, alerting.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get open alert from redis: %w", err)
	}

	val, err := s.client.Get(ctx, s.alertKey(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, alerting.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert from redis: %w", err)
	}

	var a alerting.Alert
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}
	return &a, nil
}
