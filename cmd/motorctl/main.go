package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/export"
	"github.com/san-kum/motorctl/internal/metrics"
	"github.com/san-kum/motorctl/internal/node"
	"github.com/san-kum/motorctl/internal/optim"
	"github.com/san-kum/motorctl/internal/sim"
	"github.com/san-kum/motorctl/internal/storage"
	"github.com/san-kum/motorctl/internal/viz"
)

var (
	dataDir   string
	logLevel  string
	logFormat string

	plotAfter       bool
	allPreset       bool
	theme           string
	settleThreshold float64
	svgKind         string

	tuneGains    []float64
	tuneLimits   []float64
	tuneMetric   string
	tuneMaximize bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "motorctl",
		Short: "two-actuator proportional control loop with a force norm monitor",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".motorctl", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "log format (text, json)")

	simFlags := &configFlags{}
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "run the pipeline in lockstep as fast as possible",
		RunE: func(cmd *cobra.Command, args []string) error {
			if allPreset {
				return simulateAll(cmd.Context())
			}
			return simulate(cmd, simFlags)
		},
	}
	simFlags.register(simulateCmd)
	simulateCmd.Flags().BoolVar(&plotAfter, "plot", false, "plot the trace after the run")
	simulateCmd.Flags().BoolVar(&allPreset, "all", false, "simulate every preset concurrently")
	simulateCmd.Flags().Float64Var(&settleThreshold, "settle-threshold", 0, "also report the fraction of ticks with every |velocity| below this")

	runFlags := &configFlags{}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the node graph against the wall clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, runFlags)
		},
	}
	runFlags.register(runCmd)

	liveFlags := &configFlags{}
	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the node graph with a live dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, liveFlags)
		},
	}
	liveFlags.register(liveCmd)
	liveCmd.Flags().StringVar(&theme, "theme", viz.ThemeCyberpunk.Name, fmt.Sprintf("dashboard theme %v", viz.ThemeNames()))

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id] [path]",
		Short: "export run data to JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			return storage.New(dataDir).ExportJSON(args[0], path)
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMOTORS\tDT\tGAIN\tLIMIT\tSETPOINT")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%v\t%.4f\t%.1f\t%s\t%s\n",
					name, cfg.MotorIDs, cfg.Dt, cfg.Gain, formatLimit(cfg.ForceLimit), cfg.Setpoint.Kind)
			}
			return w.Flush()
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [path]",
		Short: "export a run as an SVG chart",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&svgKind, "kind", "phase", "chart kind (phase, position)")

	tuneFlags := &configFlags{}
	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search gain and force limit against a metric",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tune(cmd, tuneFlags)
		},
	}
	tuneFlags.register(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&tuneGains, "gains", []float64{50, 100, 200, 400}, "gains to try")
	tuneCmd.Flags().Float64SliceVar(&tuneLimits, "limits", nil, "force limits to try")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "control_effort", "metric to rank by")
	tuneCmd.Flags().BoolVar(&tuneMaximize, "maximize", false, "rank the highest metric value first")

	rootCmd.AddCommand(simulateCmd, runCmd, liveCmd, listCmd, plotCmd, exportJSONCmd, exportSVGCmd, presetsCmd, tuneCmd)
	return rootCmd
}

func simulate(cmd *cobra.Command, flags *configFlags) error {
	cfg, name, err := flags.resolve(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	p, err := sim.FromConfig(cfg)
	if err != nil {
		return err
	}
	for _, m := range metrics.Default(cfg.MotorConfig().Masses) {
		p.AddMetric(m)
	}
	if settleThreshold > 0 {
		p.AddMetric(metrics.NewStability(settleThreshold))
	}

	logger.Info("simulating", "name", name, "ticks", cfg.Ticks(), "dt", cfg.Dt, "gain", cfg.Gain)
	start := time.Now()
	result, err := p.Run(contextOf(cmd), cfg.Ticks())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := save(name, "simulate", cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	printResult(os.Stdout, cfg, result)

	if plotAfter {
		tr, err := storage.New(dataDir).LoadTrace(runID)
		if err != nil {
			return err
		}
		for _, chart := range viz.PlotTrace(tr) {
			fmt.Println()
			fmt.Println(chart)
		}
	}
	return nil
}

func simulateAll(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	configs := make(map[string]*config.Config)
	for _, name := range config.ListPresets() {
		configs[name] = config.GetPreset(name)
	}

	results, err := sim.NewEnsemble(configs).Run(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tRUN\tTICKS\tFAULTS\tPEAK NORM\tCLAMP RATE")
	for _, name := range config.ListPresets() {
		result := results[name]
		runID, err := save(name, "simulate", configs[name], result)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.3f\t%.3f\n",
			name, runID, len(result.Records), len(result.Faults),
			result.Metrics["peak_force_norm"], result.Metrics["clamp_rate"])
	}
	return w.Flush()
}

func runGraph(cmd *cobra.Command, flags *configFlags) error {
	cfg, name, err := flags.resolve(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	g, err := node.NewGraph(cfg, nil, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Duration*float64(time.Second)))
		defer cancel()
	}

	logger.Info("starting node graph", "name", name, "period", cfg.Period(), "duration", cfg.Duration)
	g.Integrator.Start()
	if err := g.Run(ctx); err != nil {
		return err
	}

	result := g.Result()
	runID, err := save(name, "run", cfg, result)
	if err != nil {
		return err
	}

	stats := g.Integrator.Stats()
	logger.Info("node graph stopped", "applied", stats.Applied, "starved", stats.Starved,
		"dropped", result.Dropped, "commands_dropped", stats.Dropped)
	fmt.Printf("run id: %s\n", runID)
	printResult(os.Stdout, cfg, result)
	return nil
}

func runLive(cmd *cobra.Command, flags *configFlags) error {
	cfg, name, err := flags.resolve(cmd)
	if err != nil {
		return err
	}

	// The dashboard owns the terminal, so node logs are dropped.
	g, err := node.NewGraph(cfg, nil, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(contextOf(cmd))
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	uiErr := viz.Run(g, cfg.Motors(), theme)
	cancel()
	if err := errors.Join(uiErr, <-done); err != nil {
		return err
	}

	runID, err := save(name, "live", cfg, g.Result())
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func save(name, mode string, cfg *config.Config, result *dynamo.Result) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(name, mode, cfg, result)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printResult(w io.Writer, cfg *config.Config, result *dynamo.Result) {
	fmt.Fprintf(w, "ticks: %d\n", len(result.Records))
	fmt.Fprintf(w, "final time: %.4fs\n", result.Final.Time)

	fmt.Fprintln(w, "\nfinal state:")
	for _, id := range cfg.Motors() {
		st := result.Final.States[id]
		fmt.Fprintf(w, "  motor %d: position=%.6f velocity=%.6f\n", id, st.Position, st.Velocity)
	}

	fmt.Fprintln(w, "\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.6f\n", name, result.Metrics[name])
	}

	if len(result.Faults) == 0 && result.Dropped == 0 && result.Discards == 0 {
		return
	}
	fmt.Fprintln(w, "\nfaults:")
	for _, kind := range node.FaultKinds() {
		n := 0
		for _, err := range result.Faults {
			if errors.Is(err, kind) {
				n++
			}
		}
		if n > 0 {
			fmt.Fprintf(w, "  %v: %d\n", kind, n)
		}
	}
	fmt.Fprintf(w, "  dropped frames: %d\n", result.Dropped)
	fmt.Fprintf(w, "  discarded messages: %d\n", result.Discards)
}

func formatLimit(limit *float64) string {
	if limit == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *limit)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODE\tTIME\tTICKS\tDT\tGAIN\tLIMIT\tFAULTS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4fs\t%.1f\t%s\t%d\n",
			run.ID,
			run.Name,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Ticks,
			run.Dt,
			run.Gain,
			formatLimit(run.ForceLimit),
			run.Faults,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if tr.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("mode: %s\n", meta.Mode)
	fmt.Printf("samples: %d\n", tr.Len())
	for _, chart := range viz.PlotTrace(tr) {
		fmt.Println()
		fmt.Println(chart)
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	tr, err := storage.New(dataDir).LoadTrace(args[0])
	if err != nil {
		return err
	}

	var svg string
	switch svgKind {
	case "phase":
		svg = export.PhasePortraitSVG(tr, export.DefaultWidth, export.DefaultHeight)
	case "position":
		svg = export.PositionSVG(tr, export.DefaultWidth, export.DefaultHeight)
	default:
		return fmt.Errorf("unknown chart kind: %s", svgKind)
	}
	if svg == "" {
		return fmt.Errorf("no data to plot")
	}
	if err := os.WriteFile(args[1], []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

func tune(cmd *cobra.Command, flags *configFlags) error {
	base, name, err := flags.resolve(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(base.LogLevel, base.LogFormat, os.Stderr)

	params := []string{optim.ParamGain}
	ranges := [][]float64{tuneGains}
	if len(tuneLimits) > 0 {
		params = append(params, optim.ParamForceLimit)
		ranges = append(ranges, tuneLimits)
	}
	search, err := optim.NewGridSearch(params, ranges)
	if err != nil {
		return err
	}

	logger.Info("tuning", "base", name, "params", params, "metric", tuneMetric)
	candidates, err := search.Search(contextOf(cmd), base, tuneMetric, tuneMaximize)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tGAIN\tLIMIT\t%s\tFAULTS\n", strings.ToUpper(tuneMetric))
	for i, c := range candidates {
		limit := formatLimit(base.ForceLimit)
		if v, ok := c.Params[optim.ParamForceLimit]; ok {
			limit = fmt.Sprintf("%.1f", v)
		}
		fmt.Fprintf(w, "%d\t%.1f\t%s\t%.6f\t%d\n", i+1, c.Params[optim.ParamGain], limit, c.Value, c.Faults)
	}
	return w.Flush()
}
