package node

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/san-kum/motorctl/internal/bus"
	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/integrators"
)

type IntegratorStats struct {
	Applied  uint64
	Starved  uint64
	Discards uint64
	// Dropped counts commands lost to a full queue before the integrator
	// could read them.
	Dropped uint64
}

// IntegratorNode owns the motor state. It starts stopped: until Start is
// called it keeps publishing the current snapshot without integrating.
type IntegratorNode struct {
	opts     Options
	integ    *integrators.MotorIntegrator
	bus      *bus.Bus
	commands *bus.Subscription
	guard    SequenceGuard

	mu        sync.Mutex
	observers []dynamo.Observer

	latest  atomic.Pointer[dynamo.Snapshot]
	running atomic.Bool
	applied atomic.Uint64
	starved atomic.Uint64
}

// NewIntegratorNode subscribes to the command topic immediately, so no
// command published after it returns is missed.
func NewIntegratorNode(integ *integrators.MotorIntegrator, b *bus.Bus, opts Options) *IntegratorNode {
	n := &IntegratorNode{
		opts:     opts.withDefaults("integrator"),
		integ:    integ,
		bus:      b,
		commands: b.Subscribe(bus.TopicCommand),
	}
	snap := integ.Snapshot()
	n.latest.Store(&snap)
	return n
}

func (n *IntegratorNode) AddObserver(o dynamo.Observer) {
	n.mu.Lock()
	n.observers = append(n.observers, o)
	n.mu.Unlock()
}

func (n *IntegratorNode) Start() {
	if !n.running.Swap(true) {
		n.opts.Logger.Info("integration started", "tick", n.Snapshot().Tick)
	}
}

func (n *IntegratorNode) Stop() {
	if n.running.Swap(false) {
		n.opts.Logger.Info("integration stopped", "tick", n.Snapshot().Tick)
	}
}

func (n *IntegratorNode) Running() bool { return n.running.Load() }

// Snapshot returns the last committed state.
func (n *IntegratorNode) Snapshot() dynamo.Snapshot {
	return n.latest.Load().Clone()
}

func (n *IntegratorNode) Stats() IntegratorStats {
	return IntegratorStats{
		Applied:  n.applied.Load(),
		Starved:  n.starved.Load(),
		Discards: n.guard.Discards(),
		Dropped:  n.commands.Dropped(),
	}
}

// Run ticks until ctx is canceled. It returns nil on cancellation.
func (n *IntegratorNode) Run(ctx context.Context) error {
	defer n.commands.Close()

	ticker := n.opts.Clock.NewTicker(n.opts.Period)
	defer ticker.Stop()

	n.opts.Logger.Debug("loop started", "period", n.opts.Period)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.tick(ctx)
		}
	}
}

func (n *IntegratorNode) tick(ctx context.Context) {
	start := n.opts.Clock.Now()
	current := n.integ.Snapshot()

	cmd, ok := n.pending(current.Tick)
	if n.running.Load() {
		if ok {
			current = n.apply(current, cmd)
		} else {
			n.starved.Add(1)
		}
	}

	if err := n.bus.Publish(ctx, bus.TopicState, current.Tick, current); err != nil && ctx.Err() == nil {
		n.opts.Logger.Error("publish state", "tick", current.Tick, "error", err)
	}
	n.opts.checkDeadline("integrator", current.Tick, start)
}

func (n *IntegratorNode) apply(current dynamo.Snapshot, cmd dynamo.Command) dynamo.Snapshot {
	next, err := n.integ.Apply(cmd)
	if err != nil {
		n.opts.Faults.Report(err)
		n.opts.Logger.Error("tick rejected", "tick", cmd.Tick, "error", err)
		return current
	}

	n.latest.Store(&next)
	n.applied.Add(1)

	n.mu.Lock()
	observers := n.observers
	n.mu.Unlock()
	for _, o := range observers {
		o.OnTick(current, cmd)
	}
	return next
}

// pending drains the command queue and returns the newest command for
// tick. Older commands are discarded; newer ones are out of sequence.
func (n *IntegratorNode) pending(tick uint64) (dynamo.Command, bool) {
	var (
		cmd   dynamo.Command
		found bool
	)
	for {
		select {
		case frame, open := <-n.commands.C:
			if !open {
				return cmd, found
			}
			// Commands ahead of the state never reach the guard.
			if frame.Tick > tick {
				err := &dynamo.TickError{Node: "integrator", Tick: frame.Tick, Wrapped: dynamo.ErrOutOfSequence}
				n.opts.Faults.Report(err)
				n.opts.Logger.Warn("command ahead of state", "tick", frame.Tick, "state_tick", tick)
				continue
			}
			if err := n.guard.Accept(frame.Tick); err != nil {
				n.opts.Logger.Debug("stale command discarded", "tick", frame.Tick)
				continue
			}
			if frame.Tick < tick {
				n.guard.Discard()
				n.opts.Logger.Debug("stale command discarded", "tick", frame.Tick, "state_tick", tick)
				continue
			}

			var next dynamo.Command
			if err := frame.Decode(&next); err != nil {
				n.opts.Faults.Report(err)
				n.opts.Logger.Error("bad command frame", "tick", frame.Tick, "error", err)
				continue
			}
			cmd, found = next, true
		default:
			return cmd, found
		}
	}
}

