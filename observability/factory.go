package observability

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	gometrics "github.com/xraph/go-utils/metrics"
)

// FromGoUtils adapts a go-utils metric factory, such as the collector a Forge
// app returns from Metrics(), to a MetricFactory.
func FromGoUtils(f gometrics.MetricFactory) MetricFactory {
	return goUtilsFactory{f: f}
}

type goUtilsFactory struct {
	f gometrics.MetricFactory
}

func (g goUtilsFactory) Counter(name string) Counter     { return g.f.Counter(name) }
func (g goUtilsFactory) Histogram(name string) Histogram { return g.f.Histogram(name) }

// PrometheusFactory registers journal metrics with a Prometheus registerer.
// Metric names have their dots replaced with underscores, and asking twice
// for the same name returns the same collector.
type PrometheusFactory struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusFactory creates a factory registering with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{
		reg:        reg,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Counter implements MetricFactory.
func (p *PrometheusFactory) Counter(name string) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()

	name = promName(name)
	if c, ok := p.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: "Journal lifecycle counter " + name + ".",
	})
	p.counters[name] = register(p.reg, c)
	return p.counters[name]
}

// Histogram implements MetricFactory.
func (p *PrometheusFactory) Histogram(name string) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()

	name = promName(name)
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Journal lifecycle histogram " + name + ".",
		Buckets: prometheus.DefBuckets,
	})
	p.histograms[name] = register(p.reg, h)
	return p.histograms[name]
}

// register adds c to reg, reusing a collector another factory already
// registered under the same name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}
	return c
}

func promName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
