package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loansOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circulation",
		Name:      "loans_opened_total",
		Help:      "Loans opened, by borrow type.",
	}, []string{"borrow_type"})

	loansSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circulation",
		Name:      "loans_settled_total",
		Help:      "Loans settled, by final status.",
	}, []string{"status"})

	refusals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circulation",
		Name:      "refusals_total",
		Help:      "Operations refused or failed, by operation and error kind.",
	}, []string{"operation", "kind"})

	finesCharged = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "circulation",
		Name:      "fine_amount",
		Help:      "Total fine charged per settlement.",
		Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"status"})
)
