package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_requests_created_total",
		Help: "The total number of execution requests created",
	}, []string{"kind"}) // standard, timeout, speedup

	RequestsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_requests_claimed_total",
		Help: "The total number of requests claimed by the execution manager",
	})

	RequestsWithdrawn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_requests_withdrawn_total",
		Help: "The total number of requests withdrawn by their creator",
	})

	UnlocksScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_unlocks_scheduled_total",
		Help: "The total number of unlock schedules set",
	})

	Relocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_relocks_total",
		Help: "The total number of scheduled unlocks cancelled before elapsing",
	})

	OpenRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registry_open_requests",
		Help: "The number of requests currently holding escrow",
	})

	RejectedCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_rejected_calls_total",
		Help: "Total number of rejected state-changing calls by reason",
	}, []string{"operation", "reason"})

	EscrowReserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_escrow_reserved_total",
		Help: "Cumulative payment-token units reserved into escrow",
	}, []string{"kind"})

	InboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_inbound_messages_total",
		Help: "Cross-domain messages processed by the relay by outcome",
	}, []string{"outcome"})
)
