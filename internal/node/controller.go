package node

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/san-kum/motorctl/internal/bus"
	"github.com/san-kum/motorctl/internal/control"
	"github.com/san-kum/motorctl/internal/dynamo"
)

type ControllerStats struct {
	Computed uint64
	Idle     uint64
	Discards uint64
}

// ControllerNode turns each snapshot into an unchecked command on
// /cmd/force_raw, using the latest setpoints received.
type ControllerNode struct {
	opts      Options
	ctrl      *control.Proportional
	bus       *bus.Bus
	states    *bus.Subscription
	setpoints *bus.Subscription

	stateGuard    SequenceGuard
	setpointGuard SequenceGuard
	latest        dynamo.Setpoints
	fresh         bool

	computed atomic.Uint64
	idle     atomic.Uint64
}

func NewControllerNode(ctrl *control.Proportional, b *bus.Bus, opts Options) *ControllerNode {
	return &ControllerNode{
		opts:      opts.withDefaults("controller"),
		ctrl:      ctrl,
		bus:       b,
		states:    b.Subscribe(bus.TopicState),
		setpoints: b.Subscribe(bus.TopicSetpoint),
	}
}

func (n *ControllerNode) Stats() ControllerStats {
	return ControllerStats{
		Computed: n.computed.Load(),
		Idle:     n.idle.Load(),
		Discards: n.stateGuard.Discards() + n.setpointGuard.Discards(),
	}
}

func (n *ControllerNode) Run(ctx context.Context) error {
	defer n.states.Close()
	defer n.setpoints.Close()

	ticker := n.opts.Clock.NewTicker(n.opts.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-n.setpoints.C:
			n.onSetpoints(frame)
		case frame := <-n.states.C:
			n.onState(ctx, frame)
		case <-ticker.C:
			if !n.fresh {
				n.idle.Add(1)
			}
			n.fresh = false
		}
	}
}

func (n *ControllerNode) onSetpoints(frame bus.Frame) {
	if err := n.setpointGuard.Accept(frame.Tick); err != nil {
		n.opts.Logger.Debug("stale setpoints discarded", "tick", frame.Tick)
		return
	}
	var sp dynamo.Setpoints
	if err := frame.Decode(&sp); err != nil {
		n.opts.Faults.Report(err)
		n.opts.Logger.Error("bad setpoint frame", "tick", frame.Tick, "error", err)
		return
	}
	n.latest = sp
}

// drainSetpoints applies queued setpoints so a snapshot is paired with the
// newest targets even when both frames arrived together.
func (n *ControllerNode) drainSetpoints() {
	for {
		select {
		case frame := <-n.setpoints.C:
			n.onSetpoints(frame)
		default:
			return
		}
	}
}

func (n *ControllerNode) onState(ctx context.Context, frame bus.Frame) {
	if err := n.stateGuard.Accept(frame.Tick); err != nil {
		n.opts.Logger.Debug("stale snapshot discarded", "tick", frame.Tick)
		return
	}
	start := n.opts.Clock.Now()
	n.fresh = true
	n.drainSetpoints()

	var snap dynamo.Snapshot
	if err := frame.Decode(&snap); err != nil {
		n.opts.Faults.Report(err)
		n.opts.Logger.Error("bad state frame", "tick", frame.Tick, "error", err)
		return
	}

	fv, err := n.ctrl.Compute(snap, n.latest)
	cmd := dynamo.Command{Tick: snap.Tick, Forces: fv}
	var missing *dynamo.MissingSetpointError
	if errors.As(err, &missing) {
		cmd.Missing = missing.IDs
		n.opts.Faults.Report(err)
		n.opts.Logger.Debug("missing setpoint", "tick", snap.Tick, "motors", missing.IDs)
	}

	if err := n.bus.Publish(ctx, bus.TopicRawCommand, cmd.Tick, cmd); err != nil && ctx.Err() == nil {
		n.opts.Logger.Error("publish raw command", "tick", cmd.Tick, "error", err)
	}
	n.computed.Add(1)
	n.opts.checkDeadline("controller", snap.Tick, start)
}
