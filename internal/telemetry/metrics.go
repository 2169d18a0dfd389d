package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsSpawned            = prometheus.NewCounter(prometheus.CounterOpts{Name: "recurring_jobs_spawned_total", Help: "Jobs spawned from recurring templates"})
	TemplateFailures       = prometheus.NewCounter(prometheus.CounterOpts{Name: "recurring_template_failures_total", Help: "Templates that failed to spawn in a cycle"})
	RecurrenceSkipped      = prometheus.NewCounter(prometheus.CounterOpts{Name: "recurrence_cycles_skipped_total", Help: "Cycles skipped because another instance held the lock"})
	ReassignmentRequests   = prometheus.NewCounter(prometheus.CounterOpts{Name: "reassignment_requests_created_total", Help: "Reassignment requests raised"})
	ReassignmentDecisions  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "reassignment_decisions_total", Help: "Reassignment requests decided"}, []string{"status"})
	DirectReassignments    = prometheus.NewCounter(prometheus.CounterOpts{Name: "direct_reassignments_total", Help: "Assignments moved by an elevated role"})
	ReassignmentConflicts  = prometheus.NewCounter(prometheus.CounterOpts{Name: "reassignment_conflicts_total", Help: "Ownership transfers that lost a race"})
	NotificationsEmitted   = prometheus.NewCounter(prometheus.CounterOpts{Name: "notifications_emitted_total", Help: "Notifications handed to the emitter"})
	NotificationsPersisted = prometheus.NewCounter(prometheus.CounterOpts{Name: "notifications_persisted_total", Help: "Notification events stored by the worker"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsSpawned,
			TemplateFailures,
			RecurrenceSkipped,
			ReassignmentRequests,
			ReassignmentDecisions,
			DirectReassignments,
			ReassignmentConflicts,
			NotificationsEmitted,
			NotificationsPersisted,
		)
	})
	return promhttp.Handler()
}
