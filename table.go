package intersection

// Light is the aspect shown by one signal head
type Light string

const (
	// Red stops traffic
	Red Light = "red"
	// Yellow warns traffic
	Yellow Light = "yellow"
	// Green lets traffic through
	Green Light = "green"
)

// Signals is what the intersection displays at a given moment
type Signals struct {
	NorthSouth       Light  `json:"north_south"`
	EastWest         Light  `json:"east_west"`
	NorthSouthStatus string `json:"north_south_status"`
	EastWestStatus   string `json:"east_west_status"`
}

// allRed is shown for the whole emergency episode
var allRed = Signals{
	NorthSouth:       Red,
	EastWest:         Red,
	NorthSouthStatus: "EMERGENCY",
	EastWestStatus:   "EMERGENCY",
}

// Transition is one row of the transition table
type Transition struct {
	Phase   Phase
	Next    Phase
	Label   string
	Signals Signals
}

// transitionTable is the single source for successors and displays.
// Indexed by Phase.
var transitionTable = [phaseCount]Transition{
	{
		Phase: NSGreenEWRed,
		Next:  NSYellowEWRed,
		Label: "NS Green / EW Red",
		Signals: Signals{
			NorthSouth: Green, EastWest: Red,
			NorthSouthStatus: "GO", EastWestStatus: "STOP",
		},
	},
	{
		Phase: NSYellowEWRed,
		Next:  NSRedEWGreen,
		Label: "NS Yellow / EW Red",
		Signals: Signals{
			NorthSouth: Yellow, EastWest: Red,
			NorthSouthStatus: "CAUTION", EastWestStatus: "STOP",
		},
	},
	{
		Phase: NSRedEWGreen,
		Next:  NSRedEWYellow,
		Label: "NS Red / EW Green",
		Signals: Signals{
			NorthSouth: Red, EastWest: Green,
			NorthSouthStatus: "STOP", EastWestStatus: "GO",
		},
	},
	{
		Phase: NSRedEWYellow,
		Next:  PedestrianWalk,
		Label: "NS Red / EW Yellow",
		Signals: Signals{
			NorthSouth: Red, EastWest: Yellow,
			NorthSouthStatus: "STOP", EastWestStatus: "CAUTION",
		},
	},
	{
		Phase: PedestrianWalk,
		Next:  NSGreenEWRed,
		Label: "Pedestrian Walk",
		Signals: Signals{
			NorthSouth: Red, EastWest: Red,
			NorthSouthStatus: "STOP (PED)", EastWestStatus: "STOP (PED)",
		},
	},
}

// Transitions returns a copy of the transition table in cycle order
func Transitions() []Transition {
	rows := make([]Transition, phaseCount)
	copy(rows, transitionTable[:])
	return rows
}

// Successor returns the canonical next phase of p
func Successor(p Phase) Phase {
	if !p.Valid() {
		return NSGreenEWRed
	}
	return transitionTable[p].Next
}

// SignalsFor returns the display for p
func SignalsFor(p Phase) Signals {
	if !p.Valid() {
		return allRed
	}
	return transitionTable[p].Signals
}

// NextPhase is the pure transition function of the controller.
// A pending pedestrian request redirects the next transition to the walk phase.
func NextPhase(current Phase, pedestrianPending bool) Phase {
	if pedestrianPending && current != PedestrianWalk {
		return PedestrianWalk
	}
	return Successor(current)
}

// deciding returns the input that drives the transition out of current
func deciding(current Phase, pedestrianPending bool) Input {
	if pedestrianPending && current != PedestrianWalk {
		return InputPedestrianRequest
	}
	return InputTimerExpired
}
