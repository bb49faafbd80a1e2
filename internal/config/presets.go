package config

// Presets are ready-made simulation setups selectable by name.
var Presets = map[string]func() *Config{
	"quick": func() *Config {
		c := DefaultConfig()
		c.Sim.GridH, c.Sim.GridW = 128, 128
		c.Sim.Depth = 20
		return c
	},
	"thermal": func() *Config {
		c := DefaultConfig()
		c.Sim.Phonons = 8
		c.Sim.Seed = 1
		return c
	},
	"highres": func() *Config {
		c := DefaultConfig()
		c.Sim.GridH, c.Sim.GridW = 512, 512
		c.Sim.SamplingX, c.Sim.SamplingY = 0.05, 0.05
		c.Precision = "float32"
		c.Planning.Effort = "measure"
		return c
	},
	"scan": func() *Config {
		c := DefaultConfig()
		c.Sim.Probes = 16
		c.Sim.GridH, c.Sim.GridW = 128, 128
		return c
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	if f, ok := Presets[name]; ok {
		return f()
	}
	return nil
}

// ListPresets returns the available preset names.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	return names
}
