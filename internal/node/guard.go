package node

import (
	"sync/atomic"

	"github.com/san-kum/motorctl/internal/dynamo"
)

// SequenceGuard enforces monotonic ticks on one input. Accept is called
// only from the owning loop; Discards may be read from anywhere.
type SequenceGuard struct {
	last     uint64
	seen     bool
	discards atomic.Uint64
}

// Accept records tick, or returns dynamo.ErrStaleMessage if it is older
// than the last accepted tick. An equal tick is accepted.
func (g *SequenceGuard) Accept(tick uint64) error {
	if g.seen && tick < g.last {
		g.discards.Add(1)
		return dynamo.ErrStaleMessage
	}
	g.last = tick
	g.seen = true
	return nil
}

// Discard counts a frame dropped by the owner for its own reasons.
func (g *SequenceGuard) Discard() { g.discards.Add(1) }

func (g *SequenceGuard) Last() (uint64, bool) { return g.last, g.seen }

func (g *SequenceGuard) Discards() uint64 { return g.discards.Load() }
