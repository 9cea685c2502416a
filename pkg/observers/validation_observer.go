package observers

import (
	"fmt"
	"sync"
	"time"

	"github.com/anggasct/intersection"
)

// ValidationObserver checks that the controller only makes legal moves:
// table successors, pedestrian preemption, and resets to the first phase.
// Phase changes during an emergency episode are violations.
type ValidationObserver struct {
	intersection.BaseObserver

	expectedPhases     map[intersection.Phase]bool
	visitedPhases      map[intersection.Phase]bool
	allowedTransitions map[intersection.Phase]map[intersection.Phase]bool
	emergency          intersection.EmergencyState
	violations         []string
	mutex              sync.RWMutex
}

// NewValidationObserver creates a validation observer preloaded with the
// controller's transition table
func NewValidationObserver() *ValidationObserver {
	o := &ValidationObserver{
		expectedPhases:     make(map[intersection.Phase]bool),
		visitedPhases:      make(map[intersection.Phase]bool),
		allowedTransitions: make(map[intersection.Phase]map[intersection.Phase]bool),
		violations:         make([]string, 0),
	}
	for _, row := range intersection.Transitions() {
		o.AddAllowedTransition(row.Phase, row.Next)
	}
	return o
}

// AddExpectedPhase adds a phase that must be visited
func (o *ValidationObserver) AddExpectedPhase(phase intersection.Phase) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.expectedPhases[phase] = true
}

// AddAllowedTransition adds an allowed transition
func (o *ValidationObserver) AddAllowedTransition(from, to intersection.Phase) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, exists := o.allowedTransitions[from]; !exists {
		o.allowedTransitions[from] = make(map[intersection.Phase]bool)
	}
	o.allowedTransitions[from][to] = true
}

// addViolation adds a violation
func (o *ValidationObserver) addViolation(message string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = append(o.violations, message)
}

// OnPhaseChange validates phase changes
func (o *ValidationObserver) OnPhaseChange(from, to intersection.Phase, input intersection.Input, at time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedPhases[to] = true

	switch {
	case input == intersection.InputNone && to == intersection.NSGreenEWRed:
		// reset
		return
	case o.emergency != intersection.EmergencyStandby:
		o.violations = append(o.violations, fmt.Sprintf(
			"Phase change from '%s' to '%s' during emergency %s", from, to, o.emergency))
	case input == intersection.InputPedestrianRequest && to == intersection.PedestrianWalk:
		return
	case !o.allowedTransitions[from][to]:
		o.violations = append(o.violations, fmt.Sprintf(
			"Invalid transition from '%s' to '%s' on input '%s'", from, to, input))
	}
}

// OnEmergencyChange validates the emergency episode order
func (o *ValidationObserver) OnEmergencyChange(from, to intersection.EmergencyState, at time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	legal := (from == intersection.EmergencyStandby && to == intersection.EmergencyActivated) ||
		(from == intersection.EmergencyActivated && to == intersection.EmergencyClearing) ||
		to == intersection.EmergencyStandby
	if !legal {
		o.violations = append(o.violations, fmt.Sprintf("Invalid emergency change from %s to %s", from, to))
	}
	o.emergency = to
}

// OnError validates error handling
func (o *ValidationObserver) OnError(err error) {
	o.addViolation(fmt.Sprintf("Error occurred: %v", err))
}

// GetViolations returns all validation violations
func (o *ValidationObserver) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make([]string, len(o.violations))
	copy(result, o.violations)
	return result
}

// GetUnvisitedPhases returns phases that were expected but not visited
func (o *ValidationObserver) GetUnvisitedPhases() []intersection.Phase {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	var unvisited []intersection.Phase
	for phase := range o.expectedPhases {
		if !o.visitedPhases[phase] {
			unvisited = append(unvisited, phase)
		}
	}
	return unvisited
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset resets the validation state
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedPhases = make(map[intersection.Phase]bool)
	o.violations = make([]string, 0)
	o.emergency = intersection.EmergencyStandby
}
