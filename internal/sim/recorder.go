package sim

import (
	"sync"

	"github.com/san-kum/motorctl/internal/dynamo"
)

// Recorder is a dynamo.Observer that keeps every tick and feeds the
// metrics. Safe for use from the integrator goroutine while another
// goroutine reads it.
type Recorder struct {
	mu      sync.Mutex
	metrics []dynamo.Metric
	records []dynamo.Record
}

func NewRecorder(metrics ...dynamo.Metric) *Recorder {
	for _, m := range metrics {
		m.Reset()
	}
	return &Recorder{metrics: metrics}
}

func (r *Recorder) OnTick(snap dynamo.Snapshot, cmd dynamo.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, dynamo.Record{Snapshot: snap.Clone(), Command: cmd})
	for _, m := range r.metrics {
		m.Observe(snap, cmd)
	}
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Last returns the most recent record, if any.
func (r *Recorder) Last() (dynamo.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		return dynamo.Record{}, false
	}
	return r.records[len(r.records)-1], true
}

// Result returns the records so far and the current metric values.
func (r *Recorder) Result(final dynamo.Snapshot) *dynamo.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &dynamo.Result{
		Records: append([]dynamo.Record(nil), r.records...),
		Final:   final.Clone(),
		Metrics: make(map[string]float64, len(r.metrics)),
	}
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result
}
