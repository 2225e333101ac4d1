package measure

import "time"

type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

type Metric interface {
	AddDuration(elapsed time.Duration)
	AddCached()
	AddWaitDuration(parentName string, elapsed time.Duration)
	AVGDuration() time.Duration
	Jobs() int64
	Cached() int64
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
	AllWaits() map[string]time.Duration
}
