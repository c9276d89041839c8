package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttsgate_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "status"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttsgate_cache_hits_total",
		Help: "Synthesis requests served from the utterance cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttsgate_cache_misses_total",
		Help: "Synthesis requests that invoked the speech provider",
	})

	SynthDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ttsgate_synth_duration_seconds",
		Help:    "Speech provider call latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttsgate_errors_total",
		Help: "Error counts by kind",
	}, []string{"kind"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttsgate_rate_limited_total",
		Help: "Requests rejected by the daily character limit",
	})
)
