// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignInAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "signin_attempts_total",
		Help:      "Sign-in attempts by outcome.",
	}, []string{"outcome"})

	ImpersonationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "impersonation_transitions_total",
		Help:      "Impersonation start/end attempts by outcome.",
	}, []string{"transition", "outcome"})

	RouteDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "route_guard_decisions_total",
		Help:      "Route guard decisions.",
	}, []string{"decision"})

	AuditAppendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "audit_append_failures_total",
		Help:      "Audit entries that could not be appended.",
	}, []string{"action"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	RelayPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "audit_relay_events_total",
		Help:      "Outbox events handled by the audit relay.",
	}, []string{"outcome"})
)
