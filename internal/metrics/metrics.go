package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TargetsShown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whackgoblin_targets_shown_total",
		Help: "Targets placed on a board.",
	})
	Hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whackgoblin_hits_total",
		Help: "Clicks that landed on the target.",
	})
	MissClicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whackgoblin_miss_clicks_total",
		Help: "Clicks that landed on an empty cell.",
	})
	Expired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whackgoblin_targets_expired_total",
		Help: "Targets that timed out before being hit.",
	})
	GamesOver = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whackgoblin_games_over_total",
		Help: "Games that reached the miss limit.",
	})
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "whackgoblin_active_sessions",
		Help: "Sessions currently held in memory.",
	})
	Reaction = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "whackgoblin_reaction_milliseconds",
		Help:    "Time from a target appearing to being hit.",
		Buckets: []float64{150, 250, 350, 450, 600, 800, 1000},
	})
)
