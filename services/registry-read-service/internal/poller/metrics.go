package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	projections *prometheus.CounterVec
	skipped     prometheus.Counter
	batchSize   prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		projections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Subsystem: "outbox",
			Name:      "projections_total",
			Help:      "Outbox deliveries by outcome.",
		}, []string{"outcome"}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orderflow",
			Subsystem: "outbox",
			Name:      "skipped_total",
			Help:      "Deliveries skipped because their aggregate is blocked or its worker queue is full.",
		}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orderflow",
			Subsystem: "outbox",
			Name:      "fetch_batch_size",
			Help:      "Entries returned per outbox fetch.",
			Buckets:   []float64{0, 1, 2, 5, 10},
		}),
	}
}
