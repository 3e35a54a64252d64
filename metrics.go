package raffle

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exposes DrawMonitor counters to Prometheus.
//
// Values are read from the monitor on every scrape, so the collector holds no
// state of its own and may be registered on any registry.
type MetricsCollector struct {
	monitor *DrawMonitor

	sessions       *prometheus.Desc
	rounds         *prometheus.Desc
	picks          *prometheus.Desc
	recorderErrors *prometheus.Desc
	roundSeconds   *prometheus.Desc
}

// NewMetricsCollector creates a collector under the given namespace ("raffle" when empty)
func NewMetricsCollector(monitor *DrawMonitor, namespace string) *MetricsCollector {
	if namespace == "" {
		namespace = "raffle"
	}

	return &MetricsCollector{
		monitor: monitor,
		sessions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "draw", "sessions_total"),
			"Draw sessions by outcome.",
			[]string{"status"}, nil,
		),
		rounds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "draw", "rounds_total"),
			"Rounds awarded.",
			nil, nil,
		),
		picks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "draw", "prize_picks_total"),
			"Prize picks by selection path.",
			[]string{"path"}, nil,
		),
		recorderErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "recorder", "errors_total"),
			"Awards or summaries that could not be archived.",
			nil, nil,
		),
		roundSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "draw", "round_average_seconds"),
			"Average time spent resolving a round.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessions
	ch <- c.rounds
	ch <- c.picks
	ch <- c.recorderErrors
	ch <- c.roundSeconds
}

// Collect implements prometheus.Collector
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.monitor.GetMetrics()

	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.CounterValue, float64(m.SessionsStarted), "started")
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.CounterValue, float64(m.SessionsCompleted), "completed")
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.CounterValue, float64(m.SessionsFaulted), "faulted")

	ch <- prometheus.MustNewConstMetric(c.rounds, prometheus.CounterValue, float64(m.Rounds))

	ch <- prometheus.MustNewConstMetric(c.picks, prometheus.CounterValue, float64(m.FinalPicks), string(FastPathFinal))
	ch <- prometheus.MustNewConstMetric(c.picks, prometheus.CounterValue, float64(m.LatePicks), string(FastPathLate))
	ch <- prometheus.MustNewConstMetric(c.picks, prometheus.CounterValue, float64(m.LastAnyPicks), string(FastPathLastAny))
	ch <- prometheus.MustNewConstMetric(c.picks, prometheus.CounterValue, float64(m.AnimatedPicks), "random")

	ch <- prometheus.MustNewConstMetric(c.recorderErrors, prometheus.CounterValue, float64(m.RecorderErrors))
	ch <- prometheus.MustNewConstMetric(c.roundSeconds, prometheus.GaugeValue, m.GetAverageRoundTime().Seconds())
}

// Register adds the collector to registerer, or prometheus.DefaultRegisterer when nil
func (c *MetricsCollector) Register(registerer prometheus.Registerer) error {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return registerer.Register(c)
}
