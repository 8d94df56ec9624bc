package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/control"
	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/integrators"
	"github.com/san-kum/motorctl/internal/safety"
	"github.com/san-kum/motorctl/internal/setpoint"
)

// Pipeline runs controller, monitor and integrator in lockstep on one
// goroutine. It computes exactly what the node graph computes when no
// frame is lost, and is used for offline runs and tests.
type Pipeline struct {
	integ      *integrators.MotorIntegrator
	controller *control.Proportional
	monitor    *safety.Monitor
	source     setpoint.Source
	recorder   *Recorder
	observers  []dynamo.Observer
}

func New(integ *integrators.MotorIntegrator, ctrl *control.Proportional, monitor *safety.Monitor, source setpoint.Source) *Pipeline {
	return &Pipeline{
		integ:      integ,
		controller: ctrl,
		monitor:    monitor,
		source:     source,
		recorder:   NewRecorder(),
	}
}

// FromConfig validates cfg and builds the pipeline it describes.
func FromConfig(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integ, err := integrators.NewMotorIntegrator(cfg.MotorConfig())
	if err != nil {
		return nil, err
	}
	return New(
		integ,
		control.NewProportional(cfg.Gain, cfg.Motors()),
		safety.FromLimit(cfg.ForceLimit),
		setpoint.FromConfig(cfg),
	), nil
}

func (p *Pipeline) AddMetric(m dynamo.Metric) {
	m.Reset()
	p.recorder.metrics = append(p.recorder.metrics, m)
}

func (p *Pipeline) AddObserver(o dynamo.Observer) { p.observers = append(p.observers, o) }

func (p *Pipeline) Monitor() *safety.Monitor { return p.monitor }

func (p *Pipeline) Snapshot() dynamo.Snapshot { return p.integ.Snapshot() }

// Step runs one tick. Missing setpoints and an exceeded force limit are
// returned alongside a committed record; an invalid state is returned with
// nothing committed, the monitor's counters included.
func (p *Pipeline) Step() (dynamo.Record, error) {
	snap := p.integ.Snapshot()
	sp := p.source.At(snap.Tick, snap.Time)

	fv, tickErr := p.controller.Compute(snap, sp)
	cmd := dynamo.Command{Tick: snap.Tick}
	var missing *dynamo.MissingSetpointError
	if errors.As(tickErr, &missing) {
		cmd.Missing = missing.IDs
	}
	cmd.Forces, cmd.Safety = p.monitor.Assess(fv)
	if cmd.Safety.Status == dynamo.Exceeded {
		tickErr = errors.Join(tickErr, &dynamo.TickError{Node: "monitor", Tick: snap.Tick, Wrapped: dynamo.ErrSafetyExceeded})
	}

	if _, err := p.integ.Apply(cmd); err != nil {
		return dynamo.Record{}, err
	}
	p.monitor.Record(snap.Tick, cmd.Safety)

	rec := dynamo.Record{Snapshot: snap, Command: cmd}
	p.recorder.OnTick(snap, cmd)
	for _, o := range p.observers {
		o.OnTick(snap, cmd)
	}
	return rec, tickErr
}

// Run steps ticks times. Per-tick faults are collected in the result; an
// invalid state ends the run early.
func (p *Pipeline) Run(ctx context.Context, ticks int) (*dynamo.Result, error) {
	if ticks <= 0 {
		return nil, &dynamo.ConfigError{Field: "duration", Reason: fmt.Sprintf("must cover at least one tick, got %d", ticks)}
	}

	var faults []error
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return p.result(faults), ctx.Err()
		default:
		}

		_, err := p.Step()
		if err == nil {
			continue
		}
		faults = append(faults, err)
		if errors.Is(err, dynamo.ErrInvalidState) {
			break
		}
	}

	return p.result(faults), nil
}

func (p *Pipeline) result(faults []error) *dynamo.Result {
	result := p.recorder.Result(p.integ.Snapshot())
	result.Faults = faults
	return result
}

// RunWithCallback steps until the callback returns false or ctx is done.
func (p *Pipeline) RunWithCallback(ctx context.Context, callback func(dynamo.Record) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := p.Step()
		if errors.Is(err, dynamo.ErrInvalidState) {
			return err
		}
		if !callback(rec) {
			return nil
		}
	}
}
