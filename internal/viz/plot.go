package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/motorctl/internal/storage"
)

const (
	PlotWidth  = 80
	PlotHeight = 10
)

// PlotTrace renders position, velocity and force of every motor plus the
// force norm, one chart each.
func PlotTrace(tr *storage.Trace) []string {
	var charts []string
	for _, id := range tr.Motors {
		charts = append(charts,
			Plot(tr.Positions[id], fmt.Sprintf("motor %d position", id)),
			Plot(tr.Velocities[id], fmt.Sprintf("motor %d velocity", id)),
			Plot(tr.Forces[id], fmt.Sprintf("motor %d force", id)),
		)
	}
	charts = append(charts, Plot(tr.Norms, "force norm (after clamp)"))
	return charts
}

// Plot renders one series. NaN samples are drawn as gaps.
func Plot(data []float64, caption string) string {
	if len(data) == 0 {
		return caption + ": no data"
	}
	finite := false
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = true
			break
		}
	}
	if !finite {
		return caption + ": no samples"
	}
	return asciigraph.Plot(data,
		asciigraph.Height(PlotHeight),
		asciigraph.Width(PlotWidth),
		asciigraph.Caption(caption),
	)
}
