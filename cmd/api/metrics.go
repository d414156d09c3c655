package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	markingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendtrack_markings_total",
		Help: "Attendance markings recorded, by status.",
	}, []string{"status"})

	duplicateMarkings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_duplicate_markings_total",
		Help: "Marking attempts rejected because the day was already marked.",
	})

	paymentsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_payments_finalized_total",
		Help: "Payments finalized into an active subscription.",
	})

	reconciliationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_payment_reconciliation_failures_total",
		Help: "Paid but unentitled outcomes needing operator intervention.",
	})
)
