package node

import (
	"context"

	"github.com/san-kum/motorctl/internal/bus"
	"github.com/san-kum/motorctl/internal/setpoint"
)

// SetpointNode publishes targets from a source once per period. Tick 0 is
// published before the ticker is created.
type SetpointNode struct {
	opts   Options
	source setpoint.Source
	bus    *bus.Bus
	tick   uint64
}

func NewSetpointNode(src setpoint.Source, b *bus.Bus, opts Options) *SetpointNode {
	return &SetpointNode{opts: opts.withDefaults("setpoint"), source: src, bus: b}
}

func (n *SetpointNode) Run(ctx context.Context) error {
	n.publish(ctx)

	ticker := n.opts.Clock.NewTicker(n.opts.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.publish(ctx)
		}
	}
}

func (n *SetpointNode) publish(ctx context.Context) {
	t := float64(n.tick) * n.opts.Period.Seconds()
	sp := n.source.At(n.tick, t)
	if err := n.bus.Publish(ctx, bus.TopicSetpoint, sp.Tick, sp); err != nil && ctx.Err() == nil {
		n.opts.Logger.Error("publish setpoints", "tick", sp.Tick, "error", err)
	}
	n.tick++
}
