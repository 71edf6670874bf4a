// Package metrics exposes Prometheus instrumentation for the supervisor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "botfleet"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups every collector the supervisor updates.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	WorkersActive   prometheus.Gauge
	Reconciliations *prometheus.CounterVec
	StartFailures   prometheus.Counter
	JoinRequests    *prometheus.CounterVec
	Greetings       *prometheus.CounterVec
	BroadcastSends  *prometheus.CounterVec
	AdminCommands   *prometheus.CounterVec
	MaintenanceRuns *prometheus.CounterVec
	BotsStored      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// Passing nil skips registration, which tests use to get isolated collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WorkersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Number of worker bots currently in the active set",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Number of worker pool reconciliations by result",
		}, []string{"result"}),
		StartFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_start_failures_total",
			Help:      "Number of worker bots that could not be started",
		}),
		JoinRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_requests_total",
			Help:      "Number of chat join requests handled by result",
		}, []string{"result"}),
		Greetings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "greetings_total",
			Help:      "Number of greeting messages sent by result",
		}, []string{"result"}),
		BroadcastSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_sends_total",
			Help:      "Number of per-worker broadcast deliveries by result",
		}, []string{"result"}),
		AdminCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_commands_total",
			Help:      "Number of admin commands processed by command name",
		}, []string{"command"}),
		MaintenanceRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_maintenance_runs_total",
			Help:      "Number of scheduled store maintenance runs by result",
		}, []string{"result"}),
		BotsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bots_stored",
			Help:      "Number of bot configurations in the store at the last maintenance run",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.WorkersActive,
			m.Reconciliations,
			m.StartFailures,
			m.JoinRequests,
			m.Greetings,
			m.BroadcastSends,
			m.AdminCommands,
			m.MaintenanceRuns,
			m.BotsStored,
		)
	}

	return m
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// SetWorkersActive records the size of the active set.
func (m *Metrics) SetWorkersActive(n int) {
	if m == nil {
		return
	}
	m.WorkersActive.Set(float64(n))
}

// ObserveReconcile records one finished reconciliation and its start failures.
func (m *Metrics) ObserveReconcile(failed int, err error) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(result(err)).Inc()
	m.StartFailures.Add(float64(failed))
}

// ObserveJoinRequest records the outcome of an approval call.
func (m *Metrics) ObserveJoinRequest(err error) {
	if m == nil {
		return
	}
	m.JoinRequests.WithLabelValues(result(err)).Inc()
}

// ObserveGreeting records the outcome of a greeting message.
func (m *Metrics) ObserveGreeting(err error) {
	if m == nil {
		return
	}
	m.Greetings.WithLabelValues(result(err)).Inc()
}

// ObserveBroadcastSend records the outcome of one worker's broadcast delivery.
func (m *Metrics) ObserveBroadcastSend(err error) {
	if m == nil {
		return
	}
	m.BroadcastSends.WithLabelValues(result(err)).Inc()
}

// ObserveCommand counts an authorized admin command.
func (m *Metrics) ObserveCommand(name string) {
	if m == nil {
		return
	}
	m.AdminCommands.WithLabelValues(name).Inc()
}

// ObserveMaintenance records one store maintenance run. bots is ignored on error.
func (m *Metrics) ObserveMaintenance(bots int, err error) {
	if m == nil {
		return
	}
	m.MaintenanceRuns.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.BotsStored.Set(float64(bots))
	}
}
