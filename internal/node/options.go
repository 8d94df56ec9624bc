package node

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/san-kum/motorctl/internal/clock"
	"github.com/san-kum/motorctl/internal/dynamo"
)

const DefaultPeriod = time.Millisecond

// Options configures a node loop. Zero fields get defaults: the real
// clock, a discarding logger, a 1ms period and a deadline equal to the
// period.
type Options struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	Period   time.Duration
	Deadline time.Duration
	Faults   *Faults
}

func (o Options) withDefaults(name string) Options {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	o.Logger = o.Logger.With("node", name)
	if o.Period <= 0 {
		o.Period = DefaultPeriod
	}
	if o.Deadline <= 0 {
		o.Deadline = o.Period
	}
	if o.Faults == nil {
		o.Faults = NewFaults(0)
	}
	return o
}

// checkDeadline reports a *dynamo.TimingFault when the work started at
// start overran the deadline.
func (o Options) checkDeadline(name string, tick uint64, start time.Time) {
	elapsed := o.Clock.Now().Sub(start)
	if elapsed <= o.Deadline {
		return
	}
	fault := &dynamo.TimingFault{Node: name, Tick: tick, Elapsed: elapsed, Deadline: o.Deadline}
	o.Faults.Report(fault)
	o.Logger.Warn("deadline missed", "tick", tick, "elapsed", elapsed, "deadline", o.Deadline)
}

const DefaultFaultHistory = 256

var faultKinds = []error{
	dynamo.ErrMissingSetpoint,
	dynamo.ErrStaleMessage,
	dynamo.ErrOutOfSequence,
	dynamo.ErrSafetyExceeded,
	dynamo.ErrTimingFault,
	dynamo.ErrInvalidState,
}

// FaultKinds lists the error kinds Faults counts separately, in report
// order.
func FaultKinds() []error { return slices.Clone(faultKinds) }

// Faults collects the per-tick errors of every node. It keeps a count per
// error kind and the most recent errors. Safe for concurrent use.
type Faults struct {
	mu      sync.Mutex
	counts  map[error]int
	other   int
	recent  []error
	history int
}

// NewFaults keeps up to history recent errors, DefaultFaultHistory if
// history <= 0.
func NewFaults(history int) *Faults {
	if history <= 0 {
		history = DefaultFaultHistory
	}
	return &Faults{counts: make(map[error]int), history: history}
}

func (f *Faults) Report(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	counted := false
	for _, kind := range faultKinds {
		if errors.Is(err, kind) {
			f.counts[kind]++
			counted = true
		}
	}
	if !counted {
		f.other++
	}

	if len(f.recent) == f.history {
		copy(f.recent, f.recent[1:])
		f.recent = f.recent[:len(f.recent)-1]
	}
	f.recent = append(f.recent, err)
}

// Count returns how many reported errors matched kind via errors.Is.
func (f *Faults) Count(kind error) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[kind]
}

func (f *Faults) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := f.other
	for _, n := range f.counts {
		total += n
	}
	return total
}

// Recent returns a copy of the retained errors, oldest first.
func (f *Faults) Recent() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.recent...)
}
