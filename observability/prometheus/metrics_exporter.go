package prometheus

import (
	"errors"
	"fmt"

	"github.com/azargarov/prioexec"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// Pool labels every series; defaults to "default".
	Pool string
}

// MetricsExporter adapts prioexec.MetricsPolicy to Prometheus counters.
type MetricsExporter struct {
	spawned  prom.Counter
	polled   prom.Counter
	finished prom.Counter
	dropped  prom.Counter
	panicked prom.Counter
	healed   prom.Counter

	vecs map[string]*prom.CounterVec
}

var _ prioexec.MetricsPolicy = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers the executor's collectors.
// Registering twice against the same registry reuses the existing ones.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "prioexec"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	pool := normalizeLabel(opts.Pool, "default")

	specs := []struct{ name, help string }{
		{"tasks_spawned_total", "Total number of spawned tasks."},
		{"task_polls_total", "Total number of future polls."},
		{"tasks_finished_total", "Total number of tasks whose future completed."},
		{"messages_dropped_total", "Total number of run messages that could not be enqueued."},
		{"task_panics_total", "Total number of polls that panicked and killed their worker."},
		{"worker_heals_total", "Total number of workers restarted by Heal."},
	}

	m := &MetricsExporter{vecs: make(map[string]*prom.CounterVec, len(specs))}
	for _, s := range specs {
		vec := prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      s.name,
			Help:      s.help,
		}, []string{"pool"})
		vec, err := registerCollector(reg, vec)
		if err != nil {
			return nil, err
		}
		m.vecs[s.name] = vec
	}

	m.spawned = m.vecs["tasks_spawned_total"].WithLabelValues(pool)
	m.polled = m.vecs["task_polls_total"].WithLabelValues(pool)
	m.finished = m.vecs["tasks_finished_total"].WithLabelValues(pool)
	m.dropped = m.vecs["messages_dropped_total"].WithLabelValues(pool)
	m.panicked = m.vecs["task_panics_total"].WithLabelValues(pool)
	m.healed = m.vecs["worker_heals_total"].WithLabelValues(pool)
	return m, nil
}

func (m *MetricsExporter) IncSpawned()  { m.spawned.Inc() }
func (m *MetricsExporter) IncPolled()   { m.polled.Inc() }
func (m *MetricsExporter) IncFinished() { m.finished.Inc() }
func (m *MetricsExporter) IncDropped()  { m.dropped.Inc() }
func (m *MetricsExporter) IncPanicked() { m.panicked.Inc() }
func (m *MetricsExporter) IncHealed()   { m.healed.Inc() }

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
