package config

import "sort"

func limit(v float64) *float64 { return &v }

var Presets = map[string]*Config{
	"default": {
		MotorIDs: []int{36, 37}, Dt: 0.001, Gain: 200.0, Duration: 1.0, QueueDepth: DefaultQueueDepth,
		Setpoint:  SetpointConfig{Kind: SetpointConstant, Targets: map[int]float64{36: 1.0, 37: 0.0}},
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	},
	"limited": {
		MotorIDs: []int{36, 37}, Dt: 0.001, Gain: 200.0, ForceLimit: limit(50.0), Duration: 1.0, QueueDepth: DefaultQueueDepth,
		Setpoint:  SetpointConfig{Kind: SetpointConstant, Targets: map[int]float64{36: 1.0, 37: 0.0}},
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	},
	"heavy": {
		MotorIDs: []int{36, 37}, Dt: 0.001, Gain: 200.0, Duration: 2.0, QueueDepth: DefaultQueueDepth,
		Masses:    map[int]float64{36: 4.0, 37: 4.0},
		Setpoint:  SetpointConfig{Kind: SetpointConstant, Targets: map[int]float64{36: 1.0, 37: -1.0}},
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	},
	"sine": {
		MotorIDs: []int{36, 37}, Dt: 0.001, Gain: 200.0, Duration: 2.0, QueueDepth: DefaultQueueDepth,
		Setpoint: SetpointConfig{
			Kind:      SetpointSine,
			Offset:    DefaultSineOffset,
			Amplitude: DefaultSineAmplitude,
			Frequency: DefaultSineFrequency,
		},
		InitialState: map[int]InitStateConfig{36: {Position: 2000}, 37: {Position: 2000}},
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
