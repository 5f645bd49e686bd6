package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_applications_created_total",
			Help: "Total number of job applications submitted",
		},
	)

	ApplicationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_application_rejections_total",
			Help: "Operations on job applications refused by lifecycle rules",
		},
		[]string{"operation", "reason"},
	)

	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_application_transitions_total",
			Help: "Job application status transitions",
		},
		[]string{"from", "to"},
	)

	Settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_settlements_total",
			Help: "Settlement runs partitioned by outcome (credited or duplicate)",
		},
		[]string{"outcome"},
	)

	SettledAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_settled_amount_rupees_total",
			Help: "Rupees credited to worker balances",
		},
	)

	MatchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_match_results",
			Help:    "Number of matches returned per finder call",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"direction"},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notifications handed to the delivery queue",
		},
		[]string{"event_type", "outcome"},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Notification delivery attempts by sender",
		},
		[]string{"sender", "outcome"},
	)
)
