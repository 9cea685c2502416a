package intersection

import (
	"math"
	"math/rand"

	"github.com/samber/lo"
)

// Statistics is a read-only copy of the collector counters
type Statistics struct {
	PhaseSeconds             map[Phase]float64 `json:"phase_seconds"`
	TotalTransitions         int               `json:"total_transitions"`
	PedestrianRequests       int               `json:"pedestrian_requests"`
	PedestrianRequestsServed int               `json:"pedestrian_requests_served"`
	EmergencyActivations     int               `json:"emergency_activations"`
	CarsPassed               int               `json:"cars_passed"`
	CompletedCycles          int               `json:"completed_cycles"`
	Throughput               float64           `json:"throughput"`
}

// TotalSeconds is the simulated time spent across all phases
func (s Statistics) TotalSeconds() float64 {
	return lo.Sum(lo.Values(s.PhaseSeconds))
}

// Share returns the fraction of simulated time spent in p
func (s Statistics) Share(p Phase) float64 {
	total := s.TotalSeconds()
	if total == 0 {
		return 0
	}
	return s.PhaseSeconds[p] / total
}

// arrivalBound is the largest draw per green phase for each density
var arrivalBound = map[Density]int{
	DensityLow:    2,
	DensityMedium: 4,
	DensityHigh:   7,
}

// SimulateArrivals draws the cars that pass while phase is shown.
// Only the two green phases let cars through.
func SimulateArrivals(phase Phase, density Density, rng *rand.Rand) int {
	if !phase.IsGreen() || rng == nil {
		return 0
	}
	bound, ok := arrivalBound[density]
	if !ok {
		bound = arrivalBound[DensityLow]
	}
	return rng.Intn(bound + 1)
}

// Throughput is cars per cycle rounded to one decimal
func Throughput(cars, cycle int) float64 {
	if cycle <= 0 {
		return 0
	}
	return math.Round(float64(cars)/float64(cycle)*10) / 10
}

// collector accumulates counters; the engine owns it and guards it with its mutex
type collector struct {
	phaseSeconds    [phaseCount]float64
	transitions     int
	requests        int
	served          int
	emergencies     int
	cars            int
	completedCycles int
}

func (c *collector) reset() {
	*c = collector{}
}

func (c *collector) addPhaseTime(p Phase, seconds float64) {
	if !p.Valid() || seconds <= 0 {
		return
	}
	c.phaseSeconds[p] += seconds
}

func (c *collector) snapshot(cycle int) Statistics {
	perPhase := lo.SliceToMap(Phases(), func(p Phase) (Phase, float64) {
		return p, c.phaseSeconds[p]
	})
	return Statistics{
		PhaseSeconds:             perPhase,
		TotalTransitions:         c.transitions,
		PedestrianRequests:       c.requests,
		PedestrianRequestsServed: c.served,
		EmergencyActivations:     c.emergencies,
		CarsPassed:               c.cars,
		CompletedCycles:          c.completedCycles,
		Throughput:               Throughput(c.cars, cycle),
	}
}
