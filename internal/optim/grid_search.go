package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/metrics"
	"github.com/san-kum/motorctl/internal/sim"
)

// Params the grid can vary.
const (
	ParamGain       = "gain"
	ParamForceLimit = "force_limit"
	ParamDt         = "dt"
)

// GridSearch runs one lockstep simulation per point of the cartesian
// product of its ranges and ranks the points by one metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// Candidate is one evaluated grid point.
type Candidate struct {
	Params map[string]float64
	Value  float64
	Faults int
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, &dynamo.ConfigError{Field: "tune", Reason: fmt.Sprintf("%d params but %d ranges", len(params), len(ranges))}
	}
	for i, name := range params {
		switch name {
		case ParamGain, ParamForceLimit, ParamDt:
		default:
			return nil, &dynamo.ConfigError{Field: "tune", Reason: fmt.Sprintf("unknown parameter %q", name)}
		}
		if len(ranges[i]) == 0 {
			return nil, &dynamo.ConfigError{Field: "tune", Reason: fmt.Sprintf("empty range for %s", name)}
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Search evaluates every grid point against base and returns the
// candidates sorted best first, lowest value first unless maximize is set.
// Points whose configuration does not validate are skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string, maximize bool) ([]Candidate, error) {
	var out []Candidate
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), base, metricName, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("optim: no valid grid point for metric %q", metricName)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if maximize {
			return out[i].Value > out[j].Value
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	out *[]Candidate,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		cfg := apply(base, current)
		if cfg.Validate() != nil {
			return nil
		}
		value, faults, err := evaluate(ctx, cfg, metricName)
		if err != nil {
			return err
		}
		if math.IsNaN(value) {
			return nil
		}
		params := make(map[string]float64, len(current))
		for k, v := range current {
			params[k] = v
		}
		*out = append(*out, Candidate{Params: params, Value: value, Faults: faults})
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		if err := g.searchRecursive(ctx, depth+1, current, base, metricName, out); err != nil {
			return err
		}
	}
	delete(current, paramName)
	return nil
}

func apply(base *config.Config, params map[string]float64) *config.Config {
	cfg := base.Clone()
	for name, v := range params {
		switch name {
		case ParamGain:
			cfg.Gain = v
		case ParamForceLimit:
			limit := v
			cfg.ForceLimit = &limit
		case ParamDt:
			cfg.Dt = v
		}
	}
	return cfg
}

func evaluate(ctx context.Context, cfg *config.Config, metricName string) (float64, int, error) {
	p, err := sim.FromConfig(cfg)
	if err != nil {
		return 0, 0, err
	}
	for _, m := range metrics.Default(cfg.MotorConfig().Masses) {
		p.AddMetric(m)
	}
	result, err := p.Run(ctx, cfg.Ticks())
	if err != nil {
		return 0, 0, err
	}
	value, ok := result.Metrics[metricName]
	if !ok {
		return 0, 0, fmt.Errorf("optim: unknown metric %q", metricName)
	}
	return value, len(result.Faults), nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
