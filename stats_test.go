package intersection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimulateArrivals_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bounds := map[Density]int{DensityLow: 2, DensityMedium: 4, DensityHigh: 7}

	for density, bound := range bounds {
		seen := make(map[int]bool)
		for i := 0; i < 500; i++ {
			n := SimulateArrivals(NSGreenEWRed, density, rng)
			assert.GreaterOrEqual(t, n, 0)
			assert.LessOrEqual(t, n, bound, density.String())
			seen[n] = true
		}
		assert.Len(t, seen, bound+1, "every value in [0, %d] should be drawn", bound)
	}
}

func TestSimulateArrivals_OnlyGreen(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, p := range []Phase{NSYellowEWRed, NSRedEWYellow, PedestrianWalk} {
		for i := 0; i < 20; i++ {
			assert.Zero(t, SimulateArrivals(p, DensityHigh, rng))
		}
	}
	assert.Zero(t, SimulateArrivals(NSGreenEWRed, DensityHigh, nil))
}

func TestThroughput(t *testing.T) {
	assert.Equal(t, 0.0, Throughput(10, 0))
	assert.Equal(t, 3.3, Throughput(10, 3))
	assert.Equal(t, 6.7, Throughput(20, 3))
	assert.Equal(t, 4.0, Throughput(8, 2))
}

func TestCollector_Snapshot(t *testing.T) {
	var c collector
	c.addPhaseTime(NSGreenEWRed, 5)
	c.addPhaseTime(NSGreenEWRed, 2.5)
	c.addPhaseTime(PedestrianWalk, 3)
	c.addPhaseTime(PedestrianWalk, -1)
	c.addPhaseTime(Phase(9), 4)
	c.transitions = 4
	c.cars = 9

	stats := c.snapshot(2)
	assert.Len(t, stats.PhaseSeconds, len(Phases()))
	assert.Equal(t, 7.5, stats.PhaseSeconds[NSGreenEWRed])
	assert.Equal(t, 3.0, stats.PhaseSeconds[PedestrianWalk])
	assert.Equal(t, 0.0, stats.PhaseSeconds[NSRedEWGreen])
	assert.Equal(t, 10.5, stats.TotalSeconds())
	assert.InDelta(t, 3.0/10.5, stats.Share(PedestrianWalk), 1e-9)
	assert.Equal(t, 4, stats.TotalTransitions)
	assert.Equal(t, 4.5, stats.Throughput)

	// snapshots are copies
	stats.PhaseSeconds[NSGreenEWRed] = 0
	assert.Equal(t, 7.5, c.snapshot(2).PhaseSeconds[NSGreenEWRed])

	c.reset()
	assert.Zero(t, c.snapshot(1).TotalSeconds())
	assert.Zero(t, Statistics{}.Share(NSGreenEWRed))
}
