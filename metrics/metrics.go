// Package metrics exposes the application's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector of the application. The registerer is
// injected so tests can use an isolated registry.
type Metrics struct {
	RecordOperations *prometheus.CounterVec
	AuditEntries     *prometheus.CounterVec
	VerifyFailures   *prometheus.CounterVec
	LoginAttempts    *prometheus.CounterVec
}

// New creates and registers all collectors
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RecordOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labtrack_record_operations_total",
			Help: "Record manipulations by table and action.",
		}, []string{"table", "action"}),
		AuditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labtrack_audit_entries_total",
			Help: "Audit trail entries written by table.",
		}, []string{"table"}),
		VerifyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labtrack_verify_failures_total",
			Help: "Checksum verifications that failed at read time, by table.",
		}, []string{"table"}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labtrack_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
	}
}
