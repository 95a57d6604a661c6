// Package metrics registers Prometheus collectors for the submission and
// publish pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inviteboard_submissions_total",
			Help: "Total number of processed submissions by result",
		},
		[]string{"result"},
	)
	publishAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inviteboard_publish_attempts_total",
			Help: "Total number of publish attempts by outcome",
		},
		[]string{"outcome"},
	)
	publishDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inviteboard_publish_duration_seconds",
			Help:    "Duration of publish attempts",
			Buckets: prometheus.DefBuckets,
		},
	)
	participants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inviteboard_participants",
			Help: "Number of users on the leaderboard",
		},
	)
	invitesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inviteboard_invites_total",
			Help: "Sum of invites across all leaderboard entries",
		},
	)
	republishPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inviteboard_republish_pending",
			Help: "1 when the last publish failed and a republish is pending",
		},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inviteboard_http_requests_total",
			Help: "Total number of ops HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inviteboard_http_request_duration_seconds",
			Help:    "Duration of ops HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

var registerOnce sync.Once

// Register installs the collectors on the default registry. Call it once
// from the entry point before serving metrics.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			submissionsTotal,
			publishAttemptsTotal,
			publishDuration,
			participants,
			invitesTotal,
			republishPending,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// Submission results.
const (
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
	SubmissionFailed   = "failed"
)

// Publish outcomes.
const (
	PublishSuccess = "success"
	PublishNoop    = "noop"
	PublishFailure = "failure"
)

// ObserveSubmission counts one processed submission.
func ObserveSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

// ObservePublish counts one publish attempt and records its duration.
func ObservePublish(outcome string, seconds float64) {
	publishAttemptsTotal.WithLabelValues(outcome).Inc()
	publishDuration.Observe(seconds)
}

// SetBoardStats records the current leaderboard totals.
func SetBoardStats(users, invites int) {
	participants.Set(float64(users))
	invitesTotal.Set(float64(invites))
}

// SetRepublishPending flags whether a failed publish awaits retry.
func SetRepublishPending(pending bool) {
	v := 0.0
	if pending {
		v = 1.0
	}
	republishPending.Set(v)
}

// ObserveHTTPRequest counts one ops request and records its duration.
func ObserveHTTPRequest(path, method, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(path, method, status).Inc()
	httpRequestDuration.WithLabelValues(path, method).Observe(seconds)
}
