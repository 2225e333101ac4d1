package workflow

import (
	"time"

	"github.com/pkg/errors"
)

// CriticalPath returns the chain of nodes whose summed run time is the longest, and that time.
// Cached and skipped nodes weigh nothing.
func (r *Result) CriticalPath() ([]string, time.Duration, error) {
	if r == nil || r.plan == nil || len(r.plan.order) == 0 {
		return nil, 0, nil
	}

	total := make(map[string]int, len(r.plan.order))
	from := make(map[string]string, len(r.plan.order))

	var last string

	for _, path := range r.plan.order {
		_, props, err := r.plan.graph.VertexWithProperties(path)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "unable to read node %s", path)
		}

		best := 0
		for _, pred := range r.plan.preds[path] {
			if total[pred] > best || from[path] == "" {
				best = total[pred]
				from[path] = pred
			}
		}
		total[path] = best + props.Weight

		if last == "" || total[path] > total[last] {
			last = path
		}
	}

	chain := []string{}
	for path := last; path != ""; path = from[path] {
		chain = append([]string{path}, chain...)
	}

	return chain, time.Duration(total[last]) * time.Millisecond, nil
}
