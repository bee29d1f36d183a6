package config

import "sort"

var Presets = map[string]func(s *Settings){
	"original": func(s *Settings) {
		s.ColorScheme = "Original"
	},
	"plasma": func(s *Settings) {
		s.ColorScheme = "Plasma"
		s.LineWidth = 6.0
		s.ViewScale = 1.4
	},
	"poolside": func(s *Settings) {
		s.ColorScheme = "Poolside"
		s.Viscosity = 3.0
		s.LineLength = 350.0
	},
	"freedom": func(s *Settings) {
		s.ColorScheme = "Freedom"
		s.LineVariance = 0.7
	},
	"peacock": func(s *Settings) {
		s.ColorScheme = "Peacock"
	},
	"calm": func(s *Settings) {
		s.Viscosity = 10.0
		s.FluidSimulationFrameRate = 30.0
		s.NoiseChannels = []NoiseChannel{
			{Scale: 2.0, Multiplier: 0.6, OffsetIncrement: 0.0008},
		}
	},
	"storm": func(s *Settings) {
		s.Viscosity = 1.0
		s.LineWidth = 4.0
		s.NoiseChannels = []NoiseChannel{
			{Scale: 2.5, Multiplier: 1.4, OffsetIncrement: 0.003},
			{Scale: 15.0, Multiplier: 1.0, OffsetIncrement: 0.003},
			{Scale: 30.0, Multiplier: 0.8, OffsetIncrement: 0.003},
		}
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(&cfg.Flux)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
