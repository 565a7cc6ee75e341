package metrics

import (
	"strconv"
	"time"

	"github.com/oasislearninghub/oasis/internal/observability"
)

// Metric names follow Prometheus conventions; the exporter adds the
// namespace prefix.
const (
	GateDecisionsTotal      = "gate_decisions_total"
	CarouselTransitions     = "carousel_transitions_total"
	NoticesTotal            = "notices_total"
	EnrollmentLookupsTotal  = "enrollment_lookups_total"
	EnrollmentLookupLatency = "enrollment_lookup_duration_ms"
	AnalyticsEventsTotal    = "analytics_events_total"
	ActiveSessions          = "active_sessions"
	IngressRejectedTotal    = "ingress_rejected_total"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
)

// RecordGateDecision counts one admit or deny decision for a policy.
func RecordGateDecision(policy string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	counter(GateDecisionsTotal, map[string]string{
		"policy":  policy,
		"outcome": outcome,
	})
}

// RecordCarouselTransition counts a slide change by its trigger
// (autoplay, key, swipe, button, indicator).
func RecordCarouselTransition(trigger string) {
	counter(CarouselTransitions, map[string]string{"trigger": trigger})
}

// RecordNotice counts a displayed notice by severity.
func RecordNotice(severity string) {
	counter(NoticesTotal, map[string]string{"severity": severity})
}

// RecordEnrollmentLookup counts a lookup and records its latency.
func RecordEnrollmentLookup(found bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(EnrollmentLookupsTotal, 1, map[string]string{
		"found": strconv.FormatBool(found),
	})
	_ = observability.TelemetrySystem.Histogram(EnrollmentLookupLatency, duration, nil)
}

// RecordAnalyticsEvent counts a tracked interaction.
func RecordAnalyticsEvent(category, action string) {
	counter(AnalyticsEventsTotal, map[string]string{
		"category": category,
		"action":   action,
	})
}

// RecordIngressRejected counts a request refused by the ingress limiter.
func RecordIngressRejected(route string) {
	counter(IngressRejectedTotal, map[string]string{"route": route})
}

// SetActiveSessions sets the number of live page sessions.
func SetActiveSessions(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ActiveSessions, float64(count), nil)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

func counter(name string, labels map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(name, 1, labels)
	}
}
