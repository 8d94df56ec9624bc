package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/san-kum/motorctl/internal/config"
)

// configFlags are the flags shared by the commands that start a control
// loop. A flag only overrides the preset or config file when it was set.
type configFlags struct {
	configFile string
	preset     string
	dt         float64
	gain       float64
	forceLimit float64
	duration   float64
	deadline   float64
	motors     []int
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&f.dt, "dt", config.DefaultDt, "integration timestep in seconds")
	cmd.Flags().Float64Var(&f.gain, "gain", config.DefaultGain, "proportional gain")
	cmd.Flags().Float64Var(&f.forceLimit, "force-limit", 0, "force norm limit (unset: advisory only)")
	cmd.Flags().Float64Var(&f.duration, "duration", config.DefaultDuration, "run duration in seconds")
	cmd.Flags().Float64Var(&f.deadline, "deadline", 0, "per-tick deadline in seconds (default dt)")
	cmd.Flags().IntSliceVar(&f.motors, "motors", config.DefaultMotorIDs, "motor ids")
}

// resolve layers the preset, the config file and the changed flags, in
// that order, and validates the result. It returns the config and the
// name the run is stored under.
func (f *configFlags) resolve(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := "default"

	if f.preset != "" {
		cfg = config.GetPreset(f.preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets())
		}
		name = f.preset
	}

	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		name = "config"
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = f.dt
	}
	if flags.Changed("gain") {
		cfg.Gain = f.gain
	}
	if flags.Changed("force-limit") {
		limit := f.forceLimit
		cfg.ForceLimit = &limit
	}
	if flags.Changed("duration") {
		cfg.Duration = f.duration
	}
	if flags.Changed("deadline") {
		cfg.Deadline = f.deadline
	}
	if flags.Changed("motors") {
		cfg.MotorIDs = append([]int(nil), f.motors...)
		pruneMotors(cfg)
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

// pruneMotors drops per-motor settings for ids that are no longer
// configured.
func pruneMotors(cfg *config.Config) {
	keep := make(map[int]bool, len(cfg.MotorIDs))
	for _, id := range cfg.MotorIDs {
		keep[id] = true
	}
	for id := range cfg.Setpoint.Targets {
		if !keep[id] {
			delete(cfg.Setpoint.Targets, id)
		}
	}
	for id := range cfg.Masses {
		if !keep[id] {
			delete(cfg.Masses, id)
		}
	}
	for id := range cfg.InitialState {
		if !keep[id] {
			delete(cfg.InitialState, id)
		}
	}
}
