package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/metrics"
)

// Ensemble runs one lockstep pipeline per named configuration, each on its
// own goroutine.
type Ensemble struct {
	configs map[string]*config.Config
}

func NewEnsemble(configs map[string]*config.Config) *Ensemble {
	return &Ensemble{configs: configs}
}

func (e *Ensemble) Names() []string {
	names := make([]string, 0, len(e.configs))
	for name := range e.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Ensemble) Run(ctx context.Context) (map[string]*dynamo.Result, error) {
	names := e.Names()
	results := make([]*dynamo.Result, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(idx int, cfg *config.Config) {
			defer wg.Done()

			p, err := FromConfig(cfg)
			if err != nil {
				errs[idx] = err
				return
			}
			for _, m := range metrics.Default(cfg.MotorConfig().Masses) {
				p.AddMetric(m)
			}
			results[idx], errs[idx] = p.Run(ctx, cfg.Ticks())
		}(i, e.configs[name])
	}

	wg.Wait()

	out := make(map[string]*dynamo.Result, len(names))
	for i, name := range names {
		if errs[i] != nil {
			return nil, fmt.Errorf("%s: %w", name, errs[i])
		}
		out[name] = results[i]
	}
	return out, nil
}
