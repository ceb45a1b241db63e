package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the orbit determination tools.
type Collector struct {
	gatherer prometheus.Gatherer

	Fits          *prometheus.CounterVec
	Preliminaries *prometheus.CounterVec
	Iterations    *prometheus.HistogramVec
	Durations     *prometheus.HistogramVec
}

// NewCollector registers the metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil. Registering twice on
// the same registry returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fits, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "od_fits_total",
		Help: "Differential corrections, labeled by method and terminal status.",
	}, []string{"method", "status"}), "od_fits_total")
	if err != nil {
		return nil, err
	}
	prelims, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "od_preliminary_total",
		Help: "Preliminary orbit determinations, labeled by outcome (valid, rejected, error).",
	}, []string{"outcome"}), "od_preliminary_total")
	if err != nil {
		return nil, err
	}
	iterations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "od_fit_iterations",
		Help:    "Iterations used by each differential correction.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
	}, []string{"method"}), "od_fit_iterations")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "od_fit_duration_seconds",
		Help:    "Wall time of each differential correction in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method"}), "od_fit_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		Fits:          fits,
		Preliminaries: prelims,
		Iterations:    iterations,
		Durations:     durations,
	}, nil
}

// ObserveFit records a finished differential correction. Fits which failed
// before reaching a terminal state are labeled with status "error".
func (c *Collector) ObserveFit(method, status string, iterations int, d time.Duration) {
	if c == nil {
		return
	}
	if c.Fits != nil {
		c.Fits.WithLabelValues(method, status).Inc()
	}
	if c.Iterations != nil {
		c.Iterations.WithLabelValues(method).Observe(float64(iterations))
	}
	if c.Durations != nil {
		c.Durations.WithLabelValues(method).Observe(d.Seconds())
	}
}

// ObservePreliminary records the outcome of a preliminary orbit.
func (c *Collector) ObservePreliminary(outcome string) {
	if c == nil || c.Preliminaries == nil {
		return
	}
	c.Preliminaries.WithLabelValues(outcome).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
