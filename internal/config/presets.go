package config

import "sort"

const (
	EarthMoonMu  = 0.0121505842699
	SunJupiterMu = 9.537e-4
	demoMoonMu   = 0.0122
)

var Presets = map[string]map[string]*Config{
	"earth_moon": {
		"demo": {
			Mu: demoMoonMu, Tolerance: 1e-12, Step: 1e-5,
			InitialState: []float64{0.788, 0.200, 0.0, -0.88, 0.20, 0.0},
			Span:         [2]float64{0, 0.5},
		},
		"backward": {
			Mu: demoMoonMu, Tolerance: 1e-12, Step: 1e-5,
			InitialState: []float64{0.788, 0.200, 0.0, -0.88, 0.20, 0.0},
			Span:         [2]float64{0, -0.5},
		},
		"retrograde": {
			Mu: EarthMoonMu, Tolerance: 1e-12, Step: 1e-5,
			InitialState: []float64{-0.27, -0.42, 0, 0.3, -1.0, 0},
			Span:         [2]float64{0, 1},
		},
	},
	"sun_jupiter": {
		"near_l4": {
			Mu: SunJupiterMu, Tolerance: 1e-10, Step: 1e-4,
			InitialState: []float64{0.5 - SunJupiterMu + 0.01, 0.8660254037844386, 0, 0, 0, 0},
			Span:         [2]float64{0, 20},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(system, name string) *Config {
	p, ok := Presets[system][name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.InitialState = append([]float64(nil), p.InitialState...)
	return &cfg
}

func ListPresets(system string) []string {
	names := make([]string, 0, len(Presets[system]))
	for name := range Presets[system] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListSystems() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
