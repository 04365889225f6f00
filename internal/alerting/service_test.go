package alerting

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/guardcall"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	workers map[string]*Worker
	alerts  map[string]*Alert
	open    map[string]string // helmetID -> open alert ID
}

func newMemStore() *memStore {
	return &memStore{
		workers: make(map[string]*Worker),
		alerts:  make(map[string]*Alert),
		open:    make(map[string]string),
	}
}

func (m *memStore) SaveWorker(_ context.Context, w *Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.HelmetID] = w
	return nil
}

func (m *memStore) Worker(_ context.Context, helmetID string) (*Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[helmetID]
	if !ok {
		return nil, ErrWorkerNotFound
	}
	return w, nil
}

func (m *memStore) Workers(_ context.Context) ([]*Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	workers := make([]*Worker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	return workers, nil
}

func (m *memStore) SaveAlert(_ context.Context, a *Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
	if a.Acknowledged() {
		delete(m.open, a.HelmetID)
	} else {
		m.open[a.HelmetID] = a.ID
	}
	return nil
}

func (m *memStore) OpenAlert(_ context.Context, helmetID string) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.open[helmetID]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return m.alerts[id], nil
}

// recordingNotifier records deliveries.
type recordingNotifier struct {
	mu    sync.Mutex
	sms   map[string][]string // to -> bodies
	calls map[string][]string // to -> voice URLs
	err   error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		sms:   make(map[string][]string),
		calls: make(map[string][]string),
	}
}

func (n *recordingNotifier) SendImmediate(_ context.Context, to, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sms[to] = append(n.sms[to], body)
	return n.err
}

func (n *recordingNotifier) SendEscalation(_ context.Context, to, voiceURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[to] = append(n.calls[to], voiceURL)
	return n.err
}

func (n *recordingNotifier) callCount(to string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls[to])
}

// recordingEscalator records scheduling requests without running them.
type recordingEscalator struct {
	scheduled []string
	delays    []time.Duration
	cancelled []string
	hit       bool // Cancel result
}

func (e *recordingEscalator) Schedule(subject string, delay time.Duration, _ guardcall.Action) (*guardcall.Ticket, error) {
	e.scheduled = append(e.scheduled, subject)
	e.delays = append(e.delays, delay)
	return nil, nil
}

func (e *recordingEscalator) Cancel(subject string) bool {
	e.cancelled = append(e.cancelled, subject)
	return e.hit
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		EscalationDelay:    time.Minute,
		BaseURL:            "https://guardcall.example",
		DefaultCountryCode: "+91",
	}
}

func seedWorkers(t *testing.T, store *memStore) {
	t.Helper()
	require.NoError(t, store.SaveWorker(context.Background(), &Worker{
		HelmetID:          "helmet-1",
		Name:              "Asha",
		PhoneNumber:       "9900000001",
		FamilyPhoneNumber: "9900000002",
	}))
	require.NoError(t, store.SaveWorker(context.Background(), &Worker{
		HelmetID:    "helmet-2",
		Name:        "Ravi",
		PhoneNumber: "+919900000003",
	}))
}

func TestService_RaiseAlert(t *testing.T) {
	store := newMemStore()
	seedWorkers(t, store)
	notifier := newRecordingNotifier()
	escalator := &recordingEscalator{}

	svc := NewService(store, notifier, escalator, nopLogger(), testConfig())

	alert, err := svc.RaiseAlert(context.Background(), "helmet-1", "Fall detected", 12.97, 77.59)
	require.NoError(t, err)
	require.NotEmpty(t, alert.ID)
	assert.False(t, alert.Acknowledged())

	// Family SMS with normalized number and maps link.
	require.Len(t, notifier.sms["+919900000002"], 1)
	body := notifier.sms["+919900000002"][0]
	assert.Contains(t, body, "Asha")
	assert.Contains(t, body, "helmet-1")
	assert.Contains(t, body, "Fall detected")
	assert.Contains(t, body, "https://www.google.com/maps?q=12.97,77.59")

	// Co-worker SMS, excluding the injured worker.
	assert.Len(t, notifier.sms["+919900000003"], 1)
	assert.NotContains(t, notifier.sms, "+919900000001")

	// Escalation keyed by helmet ID with the configured delay.
	assert.Equal(t, []string{"helmet-1"}, escalator.scheduled)
	assert.Equal(t, []time.Duration{time.Minute}, escalator.delays)

	// The alert is open for acknowledgment.
	open, err := store.OpenAlert(context.Background(), "helmet-1")
	require.NoError(t, err)
	assert.Equal(t, alert.ID, open.ID)
}

func TestService_RaiseAlert_NoFamilyNumber(t *testing.T) {
	store := newMemStore()
	seedWorkers(t, store)
	notifier := newRecordingNotifier()
	escalator := &recordingEscalator{}

	svc := NewService(store, notifier, escalator, nopLogger(), testConfig())

	// helmet-2 has no family number: no family SMS, no escalation.
	_, err := svc.RaiseAlert(context.Background(), "helmet-2", "Impact detected", 1, 2)
	require.NoError(t, err)
	assert.Empty(t, escalator.scheduled)

	// Co-worker fan-out still happens.
	assert.Len(t, notifier.sms["+919900000001"], 1)
}

func TestService_RaiseAlert_UnknownWorker(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	escalator := &recordingEscalator{}

	svc := NewService(store, notifier, escalator, nopLogger(), testConfig())

	_, err := svc.RaiseAlert(context.Background(), "helmet-404", "Fall detected", 0, 0)
	assert.ErrorIs(t, err, ErrWorkerNotFound)
	assert.Empty(t, escalator.scheduled)
}

func TestService_Acknowledge(t *testing.T) {
	store := newMemStore()
	seedWorkers(t, store)
	notifier := newRecordingNotifier()
	escalator := &recordingEscalator{hit: true}

	svc := NewService(store, notifier, escalator, nopLogger(), testConfig())

	_, err := svc.RaiseAlert(context.Background(), "helmet-1", "Fall detected", 12.97, 77.59)
	require.NoError(t, err)

	alert, err := svc.Acknowledge(context.Background(), "helmet-1")
	require.NoError(t, err)
	assert.True(t, alert.Acknowledged())

	assert.Equal(t, []string{"helmet-1"}, escalator.cancelled)

	// SAFE messages to family and co-workers.
	require.Len(t, notifier.sms["+919900000002"], 2)
	assert.Contains(t, notifier.sms["+919900000002"][1], "SAFE")
	require.Len(t, notifier.sms["+919900000003"], 2)
	assert.Contains(t, notifier.sms["+919900000003"][1], "Acknowledged at")

	// The open alert is gone; a second acknowledgment misses.
	_, err = svc.Acknowledge(context.Background(), "helmet-1")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestService_Acknowledge_NoOpenAlert(t *testing.T) {
	store := newMemStore()
	seedWorkers(t, store)

	svc := NewService(store, newRecordingNotifier(), &recordingEscalator{}, nopLogger(), testConfig())

	_, err := svc.Acknowledge(context.Background(), "helmet-1")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

// End-to-end against the real scheduler: without an acknowledgment the voice
// call goes out; with one it never does.
func TestService_EscalationEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.EscalationDelay = 20 * time.Millisecond

	t.Run("call placed when unacknowledged", func(t *testing.T) {
		store := newMemStore()
		seedWorkers(t, store)
		notifier := newRecordingNotifier()
		sched := guardcall.New()
		defer sched.Close()

		svc := NewService(store, notifier, sched, nopLogger(), cfg)

		_, err := svc.RaiseAlert(context.Background(), "helmet-1", "Fall detected", 12.97, 77.59)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return notifier.callCount("+919900000002") == 1
		}, time.Second, 5*time.Millisecond)

		notifier.mu.Lock()
		voiceURL := notifier.calls["+919900000002"][0]
		notifier.mu.Unlock()
		assert.Equal(t, "https://guardcall.example/voice/alert", voiceURL)
	})

	t.Run("call suppressed by acknowledgment", func(t *testing.T) {
		store := newMemStore()
		seedWorkers(t, store)
		notifier := newRecordingNotifier()
		sched := guardcall.New()
		defer sched.Close()

		svc := NewService(store, notifier, sched, nopLogger(), cfg)

		_, err := svc.RaiseAlert(context.Background(), "helmet-1", "Fall detected", 12.97, 77.59)
		require.NoError(t, err)

		_, err = svc.Acknowledge(context.Background(), "helmet-1")
		require.NoError(t, err)

		time.Sleep(5 * cfg.EscalationDelay)
		assert.Zero(t, notifier.callCount("+919900000002"))
	})
}

func TestService_RegisterWorker(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, newRecordingNotifier(), &recordingEscalator{}, nopLogger(), testConfig())

	err := svc.RegisterWorker(context.Background(), &Worker{HelmetID: "helmet-1", Name: "Asha"})
	require.NoError(t, err)

	w, err := store.Worker(context.Background(), "helmet-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", w.Name)

	err = svc.RegisterWorker(context.Background(), &Worker{Name: "no helmet"})
	assert.Error(t, err)
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]struct {
		number string
		want   string
	}{
		"bare number gains country code": {"9900000001", "+919900000001"},
		"international kept as is":       {"+15550000", "+15550000"},
		"empty stays empty":              {"", ""},
		"whitespace trimmed":             {"  9900000001 ", "+919900000001"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePhone(tt.number, "+91"))
		})
	}
}
