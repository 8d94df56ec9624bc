package metrics

import (
	"math"

	"github.com/san-kum/motorctl/internal/dynamo"
)

// ControlEffort is the mean over ticks of the summed absolute force sent
// to the integrator.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(snap dynamo.Snapshot, cmd dynamo.Command) {
	for _, f := range cmd.Forces.Forces {
		c.sum += math.Abs(f)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
