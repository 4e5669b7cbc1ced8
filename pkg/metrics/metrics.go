package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openmol/molscript/pkg/model"
)

// Metrics holds Prometheus metric descriptors for an evaluation session.
// It implements eval.Observer.
type Metrics struct {
	reg       *prometheus.Registry
	startTime time.Time
	model     model.Model

	functionCalls    *prometheus.CounterVec
	functionFailures *prometheus.CounterVec
	functionSeconds  *prometheus.HistogramVec
	commandsTotal    *prometheus.CounterVec
	commandFailures  *prometheus.CounterVec
	commandSeconds   *prometheus.HistogramVec
	atomsTotal       prometheus.Gauge
	bondsTotal       prometheus.Gauge
	modelGeneration  prometheus.Gauge
	uptimeSeconds    prometheus.Gauge
	memoryHeapBytes  prometheus.Gauge
}

// New creates Metrics on a private registry. m, when non-nil, feeds the
// model gauges.
func New(m model.Model, startTime time.Time) *Metrics {
	mt := &Metrics{
		reg:       prometheus.NewRegistry(),
		startTime: startTime,
		model:     m,
		functionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "molscript_function_calls_total",
			Help: "Expression function and operator invocations.",
		}, []string{"function"}),
		functionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "molscript_function_failures_total",
			Help: "Function invocations that returned an error, by error kind.",
		}, []string{"function", "kind"}),
		functionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "molscript_function_duration_seconds",
			Help:    "Time spent in function handlers.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 7),
		}, []string{"function"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "molscript_commands_total",
			Help: "Script commands dispatched.",
		}, []string{"command"}),
		commandFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "molscript_command_failures_total",
			Help: "Script commands that failed, by error kind.",
		}, []string{"command", "kind"}),
		commandSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "molscript_command_duration_seconds",
			Help:    "Time spent in command handlers.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 10, 7),
		}, []string{"command"}),
		atomsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "molscript_model_atoms",
			Help: "Atoms in the current model.",
		}),
		bondsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "molscript_model_bonds",
			Help: "Bonds in the current model.",
		}),
		modelGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "molscript_model_generation",
			Help: "Structural generation of the current model.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "molscript_uptime_seconds",
			Help: "Process uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "molscript_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
	}

	mt.reg.MustRegister(
		mt.functionCalls,
		mt.functionFailures,
		mt.functionSeconds,
		mt.commandsTotal,
		mt.commandFailures,
		mt.commandSeconds,
		mt.atomsTotal,
		mt.bondsTotal,
		mt.modelGeneration,
		mt.uptimeSeconds,
		mt.memoryHeapBytes,
	)
	return mt
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveFunction implements eval.Observer.
func (m *Metrics) ObserveFunction(name string, d time.Duration, err error) {
	m.functionCalls.WithLabelValues(name).Inc()
	m.functionSeconds.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.functionFailures.WithLabelValues(name, errorKind(err)).Inc()
	}
}

// ObserveCommand implements eval.Observer.
func (m *Metrics) ObserveCommand(name string, d time.Duration, err error) {
	m.commandsTotal.WithLabelValues(name).Inc()
	m.commandSeconds.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.commandFailures.WithLabelValues(name, errorKind(err)).Inc()
	}
}

// Update refreshes all gauge metrics from current model state.
func (m *Metrics) Update() {
	if m.model != nil {
		m.atomsTotal.Set(float64(m.model.AtomCount()))
		m.bondsTotal.Set(float64(m.model.BondCount()))
		m.modelGeneration.Set(float64(m.model.Generation()))
	}
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	inner := promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		inner.ServeHTTP(w, r)
	})
}
