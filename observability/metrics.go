// Package observability provides Prometheus metrics and OpenTelemetry
// tracing instrumentation for the agent kernel core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// KERNEL LIFECYCLE METRICS
// =============================================================================

var (
	kernelTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkernel_kernel_transitions_total",
			Help: "Total number of kernel lifecycle state transitions",
		},
		[]string{"from", "to"},
	)

	kernelHeartbeatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkernel_kernel_heartbeats_total",
			Help: "Total number of heartbeats emitted",
		},
		[]string{"status"}, // status: sent, rejected
	)
)

// =============================================================================
// CALL / DISPATCH METRICS
// =============================================================================

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkernel_calls_total",
			Help: "Total number of calls executed",
		},
		[]string{"status"}, // status: success, error, denied, escalated
	)

	callDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentkernel_call_duration_seconds",
			Help:    "Call execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	dispatchUnknownTypeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkernel_dispatch_unknown_type_total",
			Help: "Total number of inbound messages with no registered handler",
		},
		[]string{"type"},
	)

	pendingRequestTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentkernel_pending_request_timeouts_total",
			Help: "Total number of pending requests swept for exceeding their deadline",
		},
	)

	pendingRequestDuplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentkernel_pending_request_duplicates_total",
			Help: "Total number of rejected duplicate correlation ids",
		},
	)
)

// =============================================================================
// POLICY METRICS
// =============================================================================

var (
	policyDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkernel_policy_decisions_total",
			Help: "Total number of policy decisions, by verdict",
		},
		[]string{"verdict", "rule"},
	)

	approvalsPendingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentkernel_policy_approvals_pending",
			Help: "Current number of pending escalation approvals",
		},
	)
)

// =============================================================================
// MEMORY METRICS
// =============================================================================

var (
	memoryWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkernel_memory_writes_total",
			Help: "Total number of memory bus writes, by outcome",
		},
		[]string{"channel", "outcome"}, // outcome: recorded, failed
	)

	memoryRingDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentkernel_memory_ring_dropped_total",
			Help: "Total number of volatile ring entries evicted",
		},
	)
)

// =============================================================================
// REGISTRY CLIENT METRICS
// =============================================================================

var (
	registryHeartbeatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkernel_registry_heartbeats_total",
			Help: "Total number of registry heartbeats sent, by outcome",
		},
		[]string{"outcome"}, // outcome: ok, failed
	)

	registryDegradedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentkernel_registry_degraded",
			Help: "1 if the registry client currently considers itself degraded, else 0",
		},
	)
)

// RecordKernelTransition records a lifecycle transition.
func RecordKernelTransition(from, to string) {
	kernelTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordHeartbeat records a heartbeat attempt outcome.
func RecordHeartbeat(status string) {
	kernelHeartbeatsTotal.WithLabelValues(status).Inc()
}

// RecordCall records a completed call's outcome and duration.
func RecordCall(status string, durationMS int) {
	callsTotal.WithLabelValues(status).Inc()
	callDurationSeconds.WithLabelValues(status).Observe(float64(durationMS) / 1000.0)
}

// RecordDispatchUnknownType records an inbound message with no handler.
func RecordDispatchUnknownType(msgType string) {
	dispatchUnknownTypeTotal.WithLabelValues(msgType).Inc()
}

// RecordPendingTimeout records one pending-request sweep expiry.
func RecordPendingTimeout() {
	pendingRequestTimeoutsTotal.Inc()
}

// RecordPendingDuplicate records one rejected duplicate correlation id.
func RecordPendingDuplicate() {
	pendingRequestDuplicatesTotal.Inc()
}

// RecordPolicyDecision records a policy engine verdict.
func RecordPolicyDecision(verdict, rule string) {
	policyDecisionsTotal.WithLabelValues(verdict, rule).Inc()
}

// SetApprovalsPending sets the current pending-escalation gauge.
func SetApprovalsPending(n int) {
	approvalsPendingGauge.Set(float64(n))
}

// RecordMemoryWrite records a memory bus write outcome.
func RecordMemoryWrite(channel, outcome string) {
	memoryWritesTotal.WithLabelValues(channel, outcome).Inc()
}

// RecordMemoryRingDropped records ring evictions.
func RecordMemoryRingDropped(n int) {
	memoryRingDroppedTotal.Add(float64(n))
}

// RecordRegistryHeartbeat records a registry heartbeat attempt outcome.
func RecordRegistryHeartbeat(outcome string) {
	registryHeartbeatsTotal.WithLabelValues(outcome).Inc()
}

// SetRegistryDegraded sets the registry-degraded gauge.
func SetRegistryDegraded(degraded bool) {
	if degraded {
		registryDegradedGauge.Set(1)
	} else {
		registryDegradedGauge.Set(0)
	}
}
