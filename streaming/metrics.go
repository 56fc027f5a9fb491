package streaming

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports streamer activity to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	resident  *prometheus.GaugeVec
	pending   *prometheus.GaugeVec
	retiring  prometheus.Gauge
	gpuBytes  prometheus.Gauge
	spawned   *prometheus.CounterVec
	completed *prometheus.CounterVec
	discarded *prometheus.CounterVec
	buildTime *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resident: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "planet",
			Subsystem: "streamer",
			Name:      "resident_meshes",
			Help:      "Meshes currently resident, by kind.",
		}, []string{"kind"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "planet",
			Subsystem: "streamer",
			Name:      "pending_jobs",
			Help:      "Mesh jobs dispatched but not yet drained, by kind.",
		}, []string{"kind"}),
		retiring: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "planet",
			Subsystem: "streamer",
			Name:      "retiring_meshes",
			Help:      "Meshes fading out.",
		}),
		gpuBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "planet",
			Subsystem: "streamer",
			Name:      "resident_bytes",
			Help:      "Estimated GPU bytes of resident vertex and index buffers.",
		}),
		spawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planet",
			Subsystem: "streamer",
			Name:      "jobs_spawned_total",
			Help:      "Mesh jobs dispatched, by kind.",
		}, []string{"kind"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planet",
			Subsystem: "streamer",
			Name:      "uploads_total",
			Help:      "Mesh results uploaded into the resident set, by kind.",
		}, []string{"kind"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planet",
			Subsystem: "streamer",
			Name:      "results_discarded_total",
			Help:      "Mesh results dropped, by reason.",
		}, []string{"reason"}),
		buildTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planet",
			Subsystem: "mesher",
			Name:      "build_seconds",
			Help:      "Time spent extracting one mesh, by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.resident, m.pending, m.retiring, m.gpuBytes,
			m.spawned, m.completed, m.discarded, m.buildTime)
	}
	return m
}

func (m *Metrics) observe(s Stats) {
	if m == nil {
		return
	}
	m.resident.WithLabelValues(KindChunk.String()).Set(float64(s.Chunks))
	m.resident.WithLabelValues(KindLod.String()).Set(float64(s.Lods))
	m.pending.WithLabelValues(KindChunk.String()).Set(float64(s.PendingChunks))
	m.pending.WithLabelValues(KindLod.String()).Set(float64(s.PendingLods))
	m.retiring.Set(float64(s.Retiring))
	m.gpuBytes.Set(float64(s.Bytes))
}

func (m *Metrics) jobSpawned(kind KeyKind) {
	if m != nil {
		m.spawned.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) uploaded(kind KeyKind) {
	if m != nil {
		m.completed.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) discard(reason string) {
	if m != nil {
		m.discarded.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) built(kind KeyKind, d time.Duration) {
	if m != nil {
		m.buildTime.WithLabelValues(kind.String()).Observe(d.Seconds())
	}
}
