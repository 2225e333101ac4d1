package measure

import (
	"sync"
	"time"
)

type DefaultMetric struct {
	allWaits    map[string]time.Duration
	mu          *sync.Mutex
	EndDuration time.Duration
	jobElapsed  time.Duration
	total       int64
	cached      int64
}

// AddDuration records the computation time of one job.
func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.jobElapsed += elapsed
}

// AddCached records a job whose results were reused.
func (mt *DefaultMetric) AddCached() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.cached++
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.EndDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

// AddWaitDuration records how long the node waited after parentName finished.
func (mt *DefaultMetric) AddWaitDuration(parentName string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.allWaits[parentName] = round(elapsed)
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.jobElapsed) / float64(mt.total)))
}

func (mt *DefaultMetric) Jobs() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

func (mt *DefaultMetric) Cached() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.cached
}

func (mt *DefaultMetric) AllWaits() map[string]time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	out := make(map[string]time.Duration, len(mt.allWaits))
	for name, elapsed := range mt.allWaits {
		out[name] = elapsed
	}

	return out
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
