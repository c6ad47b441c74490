package evolution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	//generationsTotal counts the generations computed by all episodes
	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameoflife_generations_total",
		Help: "Total generations computed by the evolution driver",
	})

	//tickDuration tracks the time spent in one tick
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gameoflife_tick_duration_seconds",
		Help:    "Universe tick duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10us to ~330ms
	})

	driverRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gameoflife_driver_running",
		Help: "1 while an evolution episode is running",
	})

	episodesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameoflife_episodes_total",
		Help: "Total evolution episodes started",
	})

	//episodesEnded counts finished episodes by reason
	episodesEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameoflife_episodes_ended_total",
		Help: "Total evolution episodes ended by reason",
	}, []string{"reason"})

	//staleGenerations counts published generations dropped by the board after a halt
	staleGenerations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameoflife_stale_generations_total",
		Help: "Generations discarded because their episode was halted",
	})
)
