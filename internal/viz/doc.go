// Package viz renders the control pipeline in the terminal.
//
//   - [Model]: Bubble Tea dashboard over a running node graph
//   - [PlotTrace]: asciigraph charts of a stored run
//   - Theme selection with 5 built-in color schemes
//
// # Key Bindings
//
//	Space, S - Start/stop integration
//	T        - Cycle color themes
//	?        - Show help overlay
//	Q        - Quit
package viz
