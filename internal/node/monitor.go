package node

import (
	"context"
	"sync/atomic"

	"github.com/san-kum/motorctl/internal/bus"
	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/safety"
)

// MonitorNode checks every raw command against the force limit and
// forwards the possibly clamped command on /cmd/force.
type MonitorNode struct {
	opts    Options
	monitor *safety.Monitor
	bus     *bus.Bus
	raw     *bus.Subscription
	guard   SequenceGuard

	evaluated atomic.Uint64
	clamped   atomic.Uint64
}

func NewMonitorNode(m *safety.Monitor, b *bus.Bus, opts Options) *MonitorNode {
	n := &MonitorNode{
		opts:    opts.withDefaults("monitor"),
		monitor: m,
		bus:     b,
		raw:     b.Subscribe(bus.TopicRawCommand),
	}
	m.OnTransition(n.logTransition)
	return n
}

func (n *MonitorNode) logTransition(tr safety.Transition) {
	limit, _ := n.monitor.Limit()
	if tr.To == dynamo.Exceeded {
		n.opts.Logger.Warn("force norm above limit", "tick", tr.Tick, "norm", tr.Norm, "limit", limit)
		return
	}
	n.opts.Logger.Info("force norm back within limit", "tick", tr.Tick, "norm", tr.Norm, "limit", limit)
}

// Evaluated and Clamped count processed and clamped commands.
func (n *MonitorNode) Evaluated() uint64 { return n.evaluated.Load() }

func (n *MonitorNode) Clamped() uint64 { return n.clamped.Load() }

func (n *MonitorNode) Discards() uint64 { return n.guard.Discards() }

func (n *MonitorNode) Run(ctx context.Context) error {
	defer n.raw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-n.raw.C:
			n.onCommand(ctx, frame)
		}
	}
}

func (n *MonitorNode) onCommand(ctx context.Context, frame bus.Frame) {
	if err := n.guard.Accept(frame.Tick); err != nil {
		n.opts.Logger.Debug("stale command discarded", "tick", frame.Tick)
		return
	}
	start := n.opts.Clock.Now()

	var cmd dynamo.Command
	if err := frame.Decode(&cmd); err != nil {
		n.opts.Faults.Report(err)
		n.opts.Logger.Error("bad raw command frame", "tick", frame.Tick, "error", err)
		return
	}

	cmd.Forces, cmd.Safety = n.monitor.Evaluate(cmd.Forces)
	n.evaluated.Add(1)
	if cmd.Safety.Status == dynamo.Exceeded {
		n.opts.Faults.Report(&dynamo.TickError{Node: "monitor", Tick: cmd.Tick, Wrapped: dynamo.ErrSafetyExceeded})
	}
	if cmd.Safety.Clamped {
		n.clamped.Add(1)
	}

	if err := n.bus.Publish(ctx, bus.TopicCommand, cmd.Tick, cmd); err != nil && ctx.Err() == nil {
		n.opts.Logger.Error("publish command", "tick", cmd.Tick, "error", err)
	}
	n.opts.checkDeadline("monitor", cmd.Tick, start)
}
