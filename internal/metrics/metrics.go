// Package metrics exports escalation scheduler events as Prometheus
// counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomasbasham/guardcall"
)

// Hook implements guardcall.MetricsHook on Prometheus counters.
type Hook struct {
	scheduled prometheus.Counter
	cancelled prometheus.Counter
	fired     prometheus.Counter
	failed    prometheus.Counter
}

var _ guardcall.MetricsHook = (*Hook)(nil)

// NewHook creates the counters and registers them with reg.
func NewHook(reg prometheus.Registerer) *Hook {
	h := &Hook{
		scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardcall_escalations_scheduled_total",
			Help: "Total number of escalations scheduled, including reschedules.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardcall_escalations_cancelled_total",
			Help: "Total number of escalations cancelled or superseded before firing.",
		}),
		fired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardcall_escalations_fired_total",
			Help: "Total number of escalations whose action was invoked.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardcall_escalation_failures_total",
			Help: "Total number of escalation actions that ran but failed to deliver.",
		}),
	}
	reg.MustRegister(h.scheduled, h.cancelled, h.fired, h.failed)
	return h
}

func (h *Hook) OnSchedule(*guardcall.Ticket)         { h.scheduled.Inc() }
func (h *Hook) OnCancel(*guardcall.Ticket)           { h.cancelled.Inc() }
func (h *Hook) OnFire(*guardcall.Ticket)             { h.fired.Inc() }
func (h *Hook) OnFireError(*guardcall.Ticket, error) { h.failed.Inc() }
