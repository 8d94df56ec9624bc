package metrics

import "github.com/san-kum/motorctl/internal/dynamo"

// ClampRate is the fraction of ticks whose command was clamped.
type ClampRate struct {
	clamped int
	samples int
}

func NewClampRate() *ClampRate { return &ClampRate{} }

func (c *ClampRate) Name() string { return "clamp_rate" }

func (c *ClampRate) Observe(snap dynamo.Snapshot, cmd dynamo.Command) {
	c.samples++
	if cmd.Safety.Clamped {
		c.clamped++
	}
}

func (c *ClampRate) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.clamped) / float64(c.samples)
}

func (c *ClampRate) Reset() {
	c.clamped = 0
	c.samples = 0
}

// PeakForceNorm is the largest force norm before clamping.
type PeakForceNorm struct {
	peak float64
}

func NewPeakForceNorm() *PeakForceNorm { return &PeakForceNorm{} }

func (p *PeakForceNorm) Name() string { return "peak_force_norm" }

func (p *PeakForceNorm) Observe(snap dynamo.Snapshot, cmd dynamo.Command) {
	if cmd.Safety.RawNorm > p.peak {
		p.peak = cmd.Safety.RawNorm
	}
}

func (p *PeakForceNorm) Value() float64 { return p.peak }

func (p *PeakForceNorm) Reset() { p.peak = 0 }

// Default returns the metrics recorded for every run.
func Default(masses map[dynamo.MotorID]float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewControlEffort(),
		NewKineticEnergy(masses),
		NewClampRate(),
		NewPeakForceNorm(),
	}
}
