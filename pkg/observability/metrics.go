package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects frame and script statistics.
type Metrics struct {
	registry *prometheus.Registry

	frames        prometheus.Counter
	frameDuration prometheus.Histogram
	nodes         prometheus.Gauge
	nodeErrors    *prometheus.CounterVec
	compiles      *prometheus.CounterVec
	compileTime   prometheus.Histogram
}

// NewMetrics creates the collectors on a private registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patchbay_frames_total",
			Help: "Total number of evaluated frames",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "patchbay_frame_duration_seconds",
			Help:    "Wall time of one frame evaluation",
			Buckets: []float64{.001, .0025, .005, .01, .0167, .025, .05, .1, .25},
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "patchbay_nodes",
			Help: "Nodes in the last evaluated snapshot",
		}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_node_errors_total",
			Help: "Contained node failures",
		}, []string{"node_id", "phase"}),
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_script_compiles_total",
			Help: "Script compilations, split by shared proto cache hits",
		}, []string{"cached"}),
		compileTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "patchbay_script_compile_duration_seconds",
			Help:    "Duration of script compilations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	m.registry.MustRegister(
		m.frames, m.frameDuration, m.nodes, m.nodeErrors, m.compiles, m.compileTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFrameEnd: func(_ context.Context, e *domain.FrameEvent) {
			m.frames.Inc()
			m.frameDuration.Observe(e.Duration.Seconds())
			m.nodes.Set(float64(e.Nodes))
		},
		OnNodeError: func(_ context.Context, e *domain.NodeErrorEvent) {
			phase := "runtime"
			if e.Compile {
				phase = "compile"
			}
			m.nodeErrors.WithLabelValues(e.NodeID, phase).Inc()
		},
		OnCompile: func(_ context.Context, e *domain.CompileEvent) {
			m.compiles.WithLabelValues(strconv.FormatBool(e.Cached)).Inc()
			if !e.Cached {
				m.compileTime.Observe(e.Duration.Seconds())
			}
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
