package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromConfig configures the Prometheus sink.
type PromConfig struct {
	// Namespace is the metrics namespace (default: "lumen").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for recompute duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// PromOption configures the Prometheus sink.
type PromOption func(*PromConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) PromOption {
	return func(c *PromConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) PromOption {
	return func(c *PromConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) PromOption {
	return func(c *PromConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the recompute duration histogram buckets.
func WithBuckets(buckets []float64) PromOption {
	return func(c *PromConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) PromOption {
	return func(c *PromConfig) {
		c.Registry = registry
	}
}

func defaultPromConfig() PromConfig {
	return PromConfig{
		Namespace: "lumen",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// PromSink exports engine events as Prometheus metrics.
type PromSink struct {
	bumpsTotal        prometheus.Counter
	dirtiesTotal      prometheus.Counter
	validationsTotal  *prometheus.CounterVec
	framesTotal       prometheus.Counter
	openFrames        prometheus.Gauge
	cellsCreatedTotal prometheus.Counter
	cellsLive         prometheus.Gauge
	cacheHitsTotal    prometheus.Counter
	recomputesTotal   prometheus.Counter
	recomputeDuration prometheus.Histogram
}

// NewPromSink creates a Prometheus sink. Register it with Register to
// start collecting:
//
//	sink := observe.NewPromSink(observe.WithSubsystem("render"))
//	defer observe.Register(sink)()
func NewPromSink(opts ...PromOption) *PromSink {
	config := defaultPromConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &PromSink{
		bumpsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "revision_bumps_total",
			Help:        "Total revision clock advances",
			ConstLabels: config.ConstLabels,
		}),
		dirtiesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tag_dirties_total",
			Help:        "Total updatable tags dirtied",
			ConstLabels: config.ConstLabels,
		}),
		validationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tag_validations_total",
			Help:        "Total snapshot validations by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),
		framesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracking_frames_total",
			Help:        "Total tracking frames opened",
			ConstLabels: config.ConstLabels,
		}),
		openFrames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracking_frames_open",
			Help:        "Tracking frames currently open",
			ConstLabels: config.ConstLabels,
		}),
		cellsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "storage_cells_created_total",
			Help:        "Total tracked storage cells allocated",
			ConstLabels: config.ConstLabels,
		}),
		cellsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "storage_cells_live",
			Help:        "Tracked storage cells currently allocated",
			ConstLabels: config.ConstLabels,
		}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reference_cache_hits_total",
			Help:        "Total memoized reference reads served from cache",
			ConstLabels: config.ConstLabels,
		}),
		recomputesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reference_recomputes_total",
			Help:        "Total memoized reference recomputations",
			ConstLabels: config.ConstLabels,
		}),
		recomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reference_recompute_duration_seconds",
			Help:        "Memoized reference recompute duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// ReactiveEvent implements Sink.
func (p *PromSink) ReactiveEvent(e Event) {
	switch e.Kind {
	case KindBump:
		p.bumpsTotal.Inc()
	case KindDirty:
		p.dirtiesTotal.Inc()
	case KindValidate:
		if e.Valid {
			p.validationsTotal.WithLabelValues("valid").Inc()
		} else {
			p.validationsTotal.WithLabelValues("stale").Inc()
		}
	case KindFrameBegin:
		p.framesTotal.Inc()
		p.openFrames.Inc()
	case KindFrameEnd:
		p.openFrames.Dec()
	case KindCellCreated:
		p.cellsCreatedTotal.Inc()
		p.cellsLive.Inc()
	case KindCellDisposed:
		p.cellsLive.Dec()
	case KindCacheHit:
		p.cacheHitsTotal.Inc()
	case KindRecompute:
		p.recomputesTotal.Inc()
		p.recomputeDuration.Observe(e.Duration.Seconds())
	}
}
