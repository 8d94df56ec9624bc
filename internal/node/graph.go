package node

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/san-kum/motorctl/internal/bus"
	"github.com/san-kum/motorctl/internal/clock"
	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/control"
	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/integrators"
	"github.com/san-kum/motorctl/internal/metrics"
	"github.com/san-kum/motorctl/internal/safety"
	"github.com/san-kum/motorctl/internal/setpoint"
	"github.com/san-kum/motorctl/internal/sim"
)

// Graph is the full set of nodes for one configuration, sharing one bus
// and one fault collector.
type Graph struct {
	Bus        *bus.Bus
	Faults     *Faults
	Integrator *IntegratorNode
	Controller *ControllerNode
	Monitor    *MonitorNode
	Setpoints  *SetpointNode
	Recorder   *sim.Recorder

	safety *safety.Monitor
}

// NewGraph validates cfg and wires every node. A nil clock means the real
// clock; a nil logger discards output.
func NewGraph(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integ, err := integrators.NewMotorIntegrator(cfg.MotorConfig())
	if err != nil {
		return nil, err
	}

	faults := NewFaults(0)
	opts := Options{
		Clock:    clk,
		Logger:   logger,
		Period:   cfg.Period(),
		Deadline: cfg.DeadlineDuration(),
		Faults:   faults,
	}

	b := bus.New(cfg.QueueDepth, logger)
	monitor := safety.FromLimit(cfg.ForceLimit)
	g := &Graph{
		Bus:        b,
		Faults:     faults,
		Integrator: NewIntegratorNode(integ, b, opts),
		Controller: NewControllerNode(control.NewProportional(cfg.Gain, cfg.Motors()), b, opts),
		Monitor:    NewMonitorNode(monitor, b, opts),
		Setpoints:  NewSetpointNode(setpoint.FromConfig(cfg), b, opts),
		Recorder:   sim.NewRecorder(metrics.Default(cfg.MotorConfig().Masses)...),
		safety:     monitor,
	}
	g.Integrator.AddObserver(g.Recorder)
	return g, nil
}

// Run starts every node and blocks until ctx is canceled and all loops
// have returned.
func (g *Graph) Run(ctx context.Context) error {
	runners := []func(context.Context) error{
		g.Integrator.Run,
		g.Controller.Run,
		g.Monitor.Run,
		g.Setpoints.Run,
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, run := range runners {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(run)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Result summarizes the run so far.
func (g *Graph) Result() *dynamo.Result {
	result := g.Recorder.Result(g.Integrator.Snapshot())
	result.Faults = g.Faults.Recent()
	result.Dropped = g.Bus.Stats().Dropped
	result.Discards = g.Integrator.Stats().Discards + g.Controller.Stats().Discards + g.Monitor.Discards()
	return result
}

func (g *Graph) Limit() (float64, bool) { return g.safety.Limit() }

// SafetyStatus is the status of the most recent evaluated command.
func (g *Graph) SafetyStatus() dynamo.SafetyStatus {
	if rec, ok := g.Recorder.Last(); ok {
		return rec.Command.Safety.Status
	}
	return dynamo.Normal
}
