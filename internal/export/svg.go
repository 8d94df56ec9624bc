package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/storage"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 360
)

type Point struct{ X, Y float64 }

// palette colors one path per motor, cycling when there are more motors.
var palette = []string{"#00ff88", "#ff6b6b", "#4488ff", "#feca57"}

// PhasePortraitSVG draws velocity against position for every motor of tr.
func PhasePortraitSVG(tr *storage.Trace, width, height int) string {
	series := make([][]Point, 0, len(tr.Motors))
	for _, id := range tr.Motors {
		series = append(series, zip(tr.Positions[id], tr.Velocities[id]))
	}
	return pathsToSVG(series, width, height)
}

// PositionSVG draws position against time for every motor of tr.
func PositionSVG(tr *storage.Trace, width, height int) string {
	series := make([][]Point, 0, len(tr.Motors))
	for _, id := range tr.Motors {
		series = append(series, zip(tr.Times, tr.Positions[id]))
	}
	return pathsToSVG(series, width, height)
}

// MotorSVG draws a single motor's phase portrait.
func MotorSVG(tr *storage.Trace, id dynamo.MotorID, width, height int) (string, error) {
	pos, ok := tr.Positions[id]
	if !ok {
		return "", fmt.Errorf("export: motor %d not in trace", id)
	}
	return TrajectoryToSVG(zip(pos, tr.Velocities[id]), width, height, palette[0]), nil
}

// zip pairs xs and ys, skipping samples where either is not finite.
func zip(xs, ys []float64) []Point {
	n := min(len(xs), len(ys))
	points := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		if !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		points = append(points, Point{X: xs[i], Y: ys[i]})
	}
	return points
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// TrajectoryToSVG creates an SVG with one path through points.
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	b := boundsOf([][]Point{points})

	var sb strings.Builder
	writeHeader(&sb, width, height)
	writePath(&sb, points, b, width, height, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

func pathsToSVG(series [][]Point, width, height int) string {
	drawable := 0
	for _, s := range series {
		if len(s) >= 2 {
			drawable++
		}
	}
	if drawable == 0 {
		return ""
	}
	b := boundsOf(series)

	var sb strings.Builder
	writeHeader(&sb, width, height)
	for i, s := range series {
		if len(s) < 2 {
			continue
		}
		writePath(&sb, s, b, width, height, palette[i%len(palette)])
	}
	sb.WriteString("</svg>")
	return sb.String()
}

type bounds struct {
	minX, rangeX float64
	minY, rangeY float64
}

// boundsOf spans every point with 10% padding on each side.
func boundsOf(series [][]Point) bounds {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, p := range s {
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	return bounds{minX: minX, rangeX: rangeX * 1.2, minY: minY, rangeY: rangeY * 1.2}
}

func writeHeader(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

func writePath(sb *strings.Builder, points []Point, b bounds, width, height int, strokeColor string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i, p := range points {
		x := (p.X - b.minX) / b.rangeX * float64(width)
		y := float64(height) - (p.Y-b.minY)/b.rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}
