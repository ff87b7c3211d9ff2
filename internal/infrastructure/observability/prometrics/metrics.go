package prometrics

import (
	"sync"

	infraobs "github.com/JulianR23/Vertex-Store/internal/infrastructure/observability"
	"github.com/JulianR23/Vertex-Store/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry exposes the subset of Prometheus registry functionality needed by the application.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	reg        prometheus.Registerer
	counters   sync.Map // name -> *prometheus.CounterVec
	histograms sync.Map // name -> *prometheus.HistogramVec
	namespace  string
	subsystem  string
}

// New builds a registry that registers collectors on reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer, namespace, subsystem string) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{reg: reg, namespace: namespace, subsystem: subsystem}
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

func (c *counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return &boundCounter{v: c.v, labels: labelMap(labels)}
}

type boundCounter struct {
	v      *prometheus.CounterVec
	labels prometheus.Labels
}

func (c *boundCounter) Add(d float64) {
	if c == nil || c.v == nil {
		return
	}
	c.v.With(c.labels).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func (h *histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return &boundHistogram{v: h.v, labels: labelMap(labels)}
}

type boundHistogram struct {
	v      *prometheus.HistogramVec
	labels prometheus.Labels
}

func (h *boundHistogram) Observe(v float64) {
	if h == nil || h.v == nil {
		return
	}
	h.v.With(h.labels).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	if v, ok := r.counters.Load(name); ok {
		return &counter{v: v.(*prometheus.CounterVec)}
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys)
	actual, _ := r.counters.LoadOrStore(name, cv)
	cv = actual.(*prometheus.CounterVec)
	r.register(cv)
	return &counter{v: cv}
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	if v, ok := r.histograms.Load(name); ok {
		return &histogram{v: v.(*prometheus.HistogramVec)}
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	actual, _ := r.histograms.LoadOrStore(name, hv)
	hv = actual.(*prometheus.HistogramVec)
	r.register(hv)
	return &histogram{v: hv}
}

func (r *registry) register(c prometheus.Collector) {
	if err := r.reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		panic(err)
	}
}

var help = map[observability.MetricKey]string{
	observability.MUsecaseRequests:         "Use case executions by outcome.",
	observability.MUsecaseDuration:         "Use case latency in seconds.",
	observability.MHTTPRequests:            "HTTP requests by route and status.",
	observability.MHTTPRequestDuration:     "HTTP request latency in seconds.",
	observability.MExternalRequests:        "Outbound calls to the payment gateway by outcome.",
	observability.MExternalRequestDuration: "Outbound call latency in seconds.",
	observability.MStockAnomalies:          "Approved orders whose stock decrement failed.",
	observability.MWebhookEvents:           "Payment webhook events by outcome.",
}

var histograms = map[observability.MetricKey]bool{
	observability.MUsecaseDuration:         true,
	observability.MHTTPRequestDuration:     true,
	observability.MExternalRequestDuration: true,
}

// Standard registers every metric listed in observability.Labels.
func Standard(r Registry) infraobs.Instruments {
	in := infraobs.Instruments{
		Counters:   make(map[observability.MetricKey]observability.Counter),
		Histograms: make(map[observability.MetricKey]observability.Histogram),
	}
	for key, labels := range observability.Labels {
		if histograms[key] {
			in.Histograms[key] = r.Histogram(string(key), help[key], prometheus.DefBuckets, labels...)
			continue
		}
		in.Counters[key] = r.Counter(string(key), help[key], labels...)
	}
	return in
}
