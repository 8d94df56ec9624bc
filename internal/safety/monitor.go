package safety

import (
	"math"

	"github.com/san-kum/motorctl/internal/dynamo"
)

// Transition is emitted when the status differs from the previous tick.
type Transition struct {
	Tick uint64
	From dynamo.SafetyStatus
	To   dynamo.SafetyStatus
	Norm float64
}

type Monitor struct {
	limit       float64
	hasLimit    bool
	last        dynamo.SafetyStatus
	handlers    []func(Transition)
	evaluations int
	exceedances int
	peak        float64
}

// NewMonitor returns an advisory monitor that never clamps.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// NewLimitedMonitor clamps vectors whose norm is above limit.
func NewLimitedMonitor(limit float64) *Monitor {
	return &Monitor{limit: limit, hasLimit: true}
}

// FromLimit picks the monitor for an optional configured limit.
func FromLimit(limit *float64) *Monitor {
	if limit == nil {
		return NewMonitor()
	}
	return NewLimitedMonitor(*limit)
}

func (m *Monitor) Limit() (float64, bool) { return m.limit, m.hasLimit }

func (m *Monitor) OnTransition(fn func(Transition)) {
	m.handlers = append(m.handlers, fn)
}

// Evaluate assesses fv and records the outcome. It returns the vector to
// pass downstream and the report for it. The input is never modified.
func (m *Monitor) Evaluate(fv dynamo.ForceVector) (dynamo.ForceVector, dynamo.Report) {
	out, report := m.Assess(fv)
	m.Record(fv.Tick, report)
	return out, report
}

// Assess computes what Evaluate would return without touching the
// counters or firing transition handlers.
func (m *Monitor) Assess(fv dynamo.ForceVector) (dynamo.ForceVector, dynamo.Report) {
	norm := fv.Norm()
	report := dynamo.Report{
		Status:   dynamo.Normal,
		Norm:     norm,
		RawNorm:  norm,
		Limit:    m.limit,
		HasLimit: m.hasLimit,
	}
	out := fv.Clone()

	// The norm is finite for every finite vector. An infinite norm means a
	// non-finite force, which no scale factor can bound; the integrator
	// rejects the resulting state.
	if m.hasLimit && norm > m.limit {
		report.Status = dynamo.Exceeded
		if !math.IsInf(norm, 1) {
			out = fv.Scale(m.limit / norm)
			report.Norm = out.Norm()
			report.Clamped = true
		}
	}

	return out, report
}

// Record commits a report returned by Assess for tick: it updates the
// counters and fires the transition handlers on a status change.
func (m *Monitor) Record(tick uint64, report dynamo.Report) {
	m.evaluations++
	if report.Status == dynamo.Exceeded {
		m.exceedances++
	}
	if report.RawNorm > m.peak {
		m.peak = report.RawNorm
	}

	if report.Status != m.last {
		tr := Transition{Tick: tick, From: m.last, To: report.Status, Norm: report.RawNorm}
		m.last = report.Status
		for _, h := range m.handlers {
			h(tr)
		}
	}
}

func (m *Monitor) Status() dynamo.SafetyStatus { return m.last }

func (m *Monitor) Evaluations() int { return m.evaluations }

func (m *Monitor) Exceedances() int { return m.exceedances }

// PeakNorm is the largest unclamped norm seen so far.
func (m *Monitor) PeakNorm() float64 { return m.peak }
