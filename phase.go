package intersection

import (
	"fmt"
	"strings"
)

// Phase represents one of the mutually exclusive light configurations
type Phase int

const (
	// NSGreenEWRed lets north-south traffic through
	NSGreenEWRed Phase = iota
	// NSYellowEWRed warns north-south traffic
	NSYellowEWRed
	// NSRedEWGreen lets east-west traffic through
	NSRedEWGreen
	// NSRedEWYellow warns east-west traffic
	NSRedEWYellow
	// PedestrianWalk holds all traffic for the crossing
	PedestrianWalk
)

// phaseCount is the number of phases in the cycle
const phaseCount = 5

var phaseNames = [phaseCount]string{
	"NS_GREEN_EW_RED",
	"NS_YELLOW_EW_RED",
	"NS_RED_EW_GREEN",
	"NS_RED_EW_YELLOW",
	"PEDESTRIAN_WALK",
}

// Phases returns every phase in cycle order
func Phases() []Phase {
	return []Phase{NSGreenEWRed, NSYellowEWRed, NSRedEWGreen, NSRedEWYellow, PedestrianWalk}
}

// String returns the canonical phase name
func (p Phase) String() string {
	if p.Valid() {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Valid reports whether p is a known phase
func (p Phase) Valid() bool {
	return p >= NSGreenEWRed && p <= PedestrianWalk
}

// IsGreen reports whether some direction has a green light
func (p Phase) IsGreen() bool {
	return p == NSGreenEWRed || p == NSRedEWGreen
}

// ParsePhase converts a canonical phase name back into a Phase
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Input is the symbol that caused a transition or a log entry
type Input int

const (
	// InputNone marks entries with no triggering input
	InputNone Input = iota
	// InputTimerExpired is the normal end of a phase
	InputTimerExpired
	// InputPedestrianRequest is a pending crossing request
	InputPedestrianRequest
	// InputEmergencyOverride is an emergency vehicle preemption
	InputEmergencyOverride
	// InputForceRed is the operator force-red command
	InputForceRed
	// InputForceGreen is the operator force-green command
	InputForceGreen
)

var inputNames = map[Input]string{
	InputNone:              "NONE",
	InputTimerExpired:      "TIMER_EXPIRED",
	InputPedestrianRequest: "PEDESTRIAN_REQUEST",
	InputEmergencyOverride: "EMERGENCY_OVERRIDE",
	InputForceRed:          "FORCE_RED",
	InputForceGreen:        "FORCE_GREEN",
}

func (i Input) String() string {
	if name, ok := inputNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Input(%d)", int(i))
}

// MarshalText implements encoding.TextMarshaler
func (i Input) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (i *Input) UnmarshalText(text []byte) error {
	for in, name := range inputNames {
		if name == string(text) {
			*i = in
			return nil
		}
	}
	return fmt.Errorf("unknown input %q", string(text))
}

// EmergencyState tracks the emergency override episode
type EmergencyState int

const (
	// EmergencyStandby is normal operation
	EmergencyStandby EmergencyState = iota
	// EmergencyActivated holds every approach at red
	EmergencyActivated
	// EmergencyClearing lets the emergency vehicle clear before resuming
	EmergencyClearing
)

func (s EmergencyState) String() string {
	switch s {
	case EmergencyStandby:
		return "STANDBY"
	case EmergencyActivated:
		return "ACTIVATED"
	case EmergencyClearing:
		return "CLEARING"
	default:
		return fmt.Sprintf("EmergencyState(%d)", int(s))
	}
}

// Density is the simulated traffic level
type Density int

const (
	// DensityLow draws at most 2 cars per green phase
	DensityLow Density = iota + 1
	// DensityMedium draws at most 4 cars per green phase
	DensityMedium
	// DensityHigh draws at most 7 cars per green phase
	DensityHigh
)

func (d Density) String() string {
	switch d {
	case DensityLow:
		return "LOW"
	case DensityMedium:
		return "MEDIUM"
	case DensityHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Density(%d)", int(d))
	}
}

// Valid reports whether d is a known density level
func (d Density) Valid() bool {
	return d >= DensityLow && d <= DensityHigh
}

// ParseDensity accepts LOW, MEDIUM or HIGH in any case
func ParseDensity(s string) (Density, error) {
	for _, d := range []Density{DensityLow, DensityMedium, DensityHigh} {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, NewConfigurationError("density", fmt.Sprintf("unknown density %q", s))
}
