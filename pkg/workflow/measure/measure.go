package measure

import (
	"sync"
	"time"
)

type DefaultMeasure struct {
	mu    sync.RWMutex
	Steps map[string]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Steps: make(map[string]Metric),
	}
}

func (m *DefaultMeasure) AddMetric(name string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt := &DefaultMetric{
		mu:       &sync.Mutex{},
		allWaits: make(map[string]time.Duration),
	}
	m.Steps[name] = mt

	return mt
}

// GetMetric returns the metric registered under name, creating it when missing.
func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.RLock()
	mt, ok := m.Steps[name]
	m.mu.RUnlock()
	if ok {
		return mt
	}

	return m.AddMetric(name)
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Metric, len(m.Steps))
	for name, mt := range m.Steps {
		out[name] = mt
	}

	return out
}

var _ Measure = (*DefaultMeasure)(nil)
