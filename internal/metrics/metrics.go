package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var namespace = "kvs"
var subsystem = "store"

// Metrics holds the collectors for one store. Collectors built with a nil
// registerer are live but not exported anywhere.
type Metrics struct {
	// Segments is the number of segment files, active one included
	Segments prometheus.Gauge

	// TotalBytes is the size of all segment files
	TotalBytes prometheus.Gauge

	// LiveBytes is the size of the records the index points at
	LiveBytes prometheus.Gauge

	// Keys is the number of live keys
	Keys prometheus.Gauge

	// Operations counts engine calls partitioned by op and result
	Operations *prometheus.CounterVec

	Rollovers   prometheus.Counter
	Compactions prometheus.Counter

	// CompactionDuration stores how long each compaction took (in seconds)
	CompactionDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Segments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "segments",
			Help:      "Number of segment files",
		}),
		TotalBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "total_bytes",
			Help:      "Bytes held by all segment files",
		}),
		LiveBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "live_bytes",
			Help:      "Bytes of records referenced by the index",
		}),
		Keys: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "keys",
			Help:      "Number of live keys",
		}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Store operations partitioned by op and result",
		}, []string{"op", "result"}),
		Rollovers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rollovers_total",
			Help:      "Number of times the active segment was sealed",
		}),
		Compactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compactions_total",
			Help:      "Number of completed compactions",
		}),
		CompactionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compaction_duration_seconds",
			Help:      "Time taken by each compaction",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

// Observe records the outcome of one store operation.
func (m *Metrics) Observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.Operations.WithLabelValues(op, result).Inc()
}
