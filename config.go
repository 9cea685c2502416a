package intersection

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default timing, in seconds
const (
	DefaultNSGreen    = 5
	DefaultNSYellow   = 2
	DefaultEWGreen    = 5
	DefaultEWYellow   = 2
	DefaultPedestrian = 3
	DefaultEmergency  = 5
	DefaultClearing   = 2
	DefaultMaxCycles  = 5
)

// UnboundedCycles disables the cycle limit
const UnboundedCycles = -1

// Config holds the controller timing. Durations are whole seconds.
type Config struct {
	NSGreen    int `yaml:"ns_green" json:"ns_green"`
	NSYellow   int `yaml:"ns_yellow" json:"ns_yellow"`
	EWGreen    int `yaml:"ew_green" json:"ew_green"`
	EWYellow   int `yaml:"ew_yellow" json:"ew_yellow"`
	Pedestrian int `yaml:"pedestrian" json:"pedestrian"`

	// Emergency is how long all approaches are held at red
	Emergency int `yaml:"emergency" json:"emergency"`
	// Clearing is the delay between the hold and normal operation
	Clearing int `yaml:"clearing" json:"clearing"`

	MaxCycles int `yaml:"max_cycles" json:"max_cycles"`

	// ScaleGreenWithDensity halves green time at low density and doubles it at high density
	ScaleGreenWithDensity bool `yaml:"scale_green_with_density" json:"scale_green_with_density"`
}

// DefaultConfig returns the stock timing plan
func DefaultConfig() Config {
	return Config{
		NSGreen:    DefaultNSGreen,
		NSYellow:   DefaultNSYellow,
		EWGreen:    DefaultEWGreen,
		EWYellow:   DefaultEWYellow,
		Pedestrian: DefaultPedestrian,
		Emergency:  DefaultEmergency,
		Clearing:   DefaultClearing,
		MaxCycles:  DefaultMaxCycles,
	}
}

// Validate checks every duration and the cycle limit
func (c Config) Validate() error {
	durations := []struct {
		field string
		value int
	}{
		{"ns_green", c.NSGreen},
		{"ns_yellow", c.NSYellow},
		{"ew_green", c.EWGreen},
		{"ew_yellow", c.EWYellow},
		{"pedestrian", c.Pedestrian},
		{"emergency", c.Emergency},
		{"clearing", c.Clearing},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return NewConfigurationError(d.field, fmt.Sprintf("duration must be positive, got %d", d.value))
		}
	}
	if c.MaxCycles <= 0 && c.MaxCycles != UnboundedCycles {
		return NewConfigurationError("max_cycles", fmt.Sprintf("must be positive or unbounded, got %d", c.MaxCycles))
	}
	return nil
}

// Bounded reports whether the cycle limit is in force
func (c Config) Bounded() bool {
	return c.MaxCycles != UnboundedCycles
}

// PhaseSeconds returns the configured duration of p, scaled by density when enabled
func (c Config) PhaseSeconds(p Phase, density Density) float64 {
	var base int
	switch p {
	case NSGreenEWRed:
		base = c.NSGreen
	case NSYellowEWRed:
		base = c.NSYellow
	case NSRedEWGreen:
		base = c.EWGreen
	case NSRedEWYellow:
		base = c.EWYellow
	case PedestrianWalk:
		base = c.Pedestrian
	default:
		return 1
	}

	seconds := float64(base)
	if c.ScaleGreenWithDensity && p.IsGreen() {
		switch density {
		case DensityLow:
			seconds *= 0.5
		case DensityHigh:
			seconds *= 2
		}
	}
	return seconds
}

// CycleSeconds is the length of one full cycle without preemption
func (c Config) CycleSeconds(density Density) float64 {
	var total float64
	for _, p := range Phases() {
		total += c.PhaseSeconds(p, density)
	}
	return total
}

// ConfigUpdate is a partial configuration; nil fields keep their current value
type ConfigUpdate struct {
	NSGreen               *int  `yaml:"ns_green,omitempty" json:"ns_green,omitempty"`
	NSYellow              *int  `yaml:"ns_yellow,omitempty" json:"ns_yellow,omitempty"`
	EWGreen               *int  `yaml:"ew_green,omitempty" json:"ew_green,omitempty"`
	EWYellow              *int  `yaml:"ew_yellow,omitempty" json:"ew_yellow,omitempty"`
	Pedestrian            *int  `yaml:"pedestrian,omitempty" json:"pedestrian,omitempty"`
	Emergency             *int  `yaml:"emergency,omitempty" json:"emergency,omitempty"`
	Clearing              *int  `yaml:"clearing,omitempty" json:"clearing,omitempty"`
	MaxCycles             *int  `yaml:"max_cycles,omitempty" json:"max_cycles,omitempty"`
	ScaleGreenWithDensity *bool `yaml:"scale_green_with_density,omitempty" json:"scale_green_with_density,omitempty"`
}

// Merge applies the non-nil fields of u on top of c
func (c Config) Merge(u ConfigUpdate) Config {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.NSGreen, u.NSGreen)
	set(&c.NSYellow, u.NSYellow)
	set(&c.EWGreen, u.EWGreen)
	set(&c.EWYellow, u.EWYellow)
	set(&c.Pedestrian, u.Pedestrian)
	set(&c.Emergency, u.Emergency)
	set(&c.Clearing, u.Clearing)
	set(&c.MaxCycles, u.MaxCycles)
	if u.ScaleGreenWithDensity != nil {
		c.ScaleGreenWithDensity = *u.ScaleGreenWithDensity
	}
	return c
}

// Int is a helper for building ConfigUpdate literals
func Int(v int) *int {
	return &v
}

// Bool is a helper for building ConfigUpdate literals
func Bool(v bool) *bool {
	return &v
}

// ParseConfig decodes YAML on top of the defaults and validates the result
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// marshalYAML encodes the configuration for persistence
func (c Config) marshalYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	return data, nil
}
