package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_transitions_total",
			Help: "Redirect gate transitions by resulting phase",
		},
		[]string{"phase"},
	)

	ClicksFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_clicks_finalized_total",
			Help: "Completed traversals handed to the earnings ledger",
		},
		[]string{"result"}, // recorded | duplicate
	)

	EarningsCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_earnings_credited_total",
			Help: "Sum of balance credited to link owners",
		},
	)

	LinkCreations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_creations_total",
			Help: "Link creation attempts by channel and outcome",
		},
		[]string{"channel", "result"},
	)

	ClicksProjected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_projection_events_total",
			Help: "Click events consumed into the daily stats projection",
		},
		[]string{"result"}, // applied | duplicate | skipped | error
	)
)
