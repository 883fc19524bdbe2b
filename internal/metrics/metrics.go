// Package metrics registers the Prometheus collectors for Pulse
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncsTotal counts member sync runs by outcome
	SyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_syncs_total",
		Help: "Member sync runs by outcome.",
	}, []string{"outcome"})

	// MembersSynced counts member rows upserted by syncs
	MembersSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_members_synced_total",
		Help: "Member rows upserted by sync runs.",
	})

	// MembersSkipped counts raw records dropped during transformation
	MembersSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_members_skipped_total",
		Help: "Raw member records skipped during sync transformation.",
	})

	// SnapshotsTotal counts daily snapshot runs by outcome
	SnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_snapshots_total",
		Help: "Daily snapshot runs by outcome.",
	}, []string{"outcome"})

	// WebhookEvents counts processed webhook deliveries by action
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_webhook_events_total",
		Help: "Webhook deliveries processed by action.",
	}, []string{"action"})

	// HTTPRequestDuration observes handler latency by route and status
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulse_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)
