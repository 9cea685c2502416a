package observers

import (
	"sync"
	"time"

	"github.com/anggasct/intersection"
)

// MetricsObserver collects metrics about controller execution. Durations
// are measured with the timestamps the engine reports, so they follow the
// engine's clock.
type MetricsObserver struct {
	intersection.BaseObserver

	phaseVisits      map[intersection.Phase]int
	phaseTimeSpent   map[intersection.Phase]time.Duration
	inputCounts      map[intersection.Input]int
	transitionCounts map[string]int
	emergencyCount   int
	rejectionCount   int
	errorCount       int
	lastPhase        intersection.Phase
	lastPhaseEntry   time.Time
	mutex            sync.RWMutex
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		phaseVisits:      make(map[intersection.Phase]int),
		phaseTimeSpent:   make(map[intersection.Phase]time.Duration),
		inputCounts:      make(map[intersection.Input]int),
		transitionCounts: make(map[string]int),
	}
}

// OnPhaseChange records visit, dwell and transition metrics
func (o *MetricsObserver) OnPhaseChange(from, to intersection.Phase, input intersection.Input, at time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.lastPhaseEntry.IsZero() && o.lastPhase == from {
		o.phaseTimeSpent[from] += at.Sub(o.lastPhaseEntry)
	}
	o.lastPhase = to
	o.lastPhaseEntry = at

	o.phaseVisits[to]++
	o.inputCounts[input]++
	o.transitionCounts[from.String()+"->"+to.String()]++
}

// OnEmergencyChange counts emergency activations
func (o *MetricsObserver) OnEmergencyChange(from, to intersection.EmergencyState, at time.Time) {
	if to != intersection.EmergencyActivated {
		return
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.emergencyCount++
}

// OnRequestRejected counts refused commands
func (o *MetricsObserver) OnRequestRejected(err *intersection.TransitionError, at time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.rejectionCount++
}

// OnError records error metrics
func (o *MetricsObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.errorCount++
}

// GetPhaseVisitCounts returns the number of times each phase was entered
func (o *MetricsObserver) GetPhaseVisitCounts() map[intersection.Phase]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[intersection.Phase]int)
	for phase, count := range o.phaseVisits {
		result[phase] = count
	}
	return result
}

// GetPhaseTimeSpent returns the time spent in each phase that has been left
func (o *MetricsObserver) GetPhaseTimeSpent() map[intersection.Phase]time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[intersection.Phase]time.Duration)
	for phase, duration := range o.phaseTimeSpent {
		result[phase] = duration
	}
	return result
}

// GetInputCounts returns how often each input drove a phase change
func (o *MetricsObserver) GetInputCounts() map[intersection.Input]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[intersection.Input]int)
	for input, count := range o.inputCounts {
		result[input] = count
	}
	return result
}

// GetTransitionCounts returns the number of times each transition occurred
func (o *MetricsObserver) GetTransitionCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[string]int)
	for transition, count := range o.transitionCounts {
		result[transition] = count
	}
	return result
}

// GetEmergencyCount returns the number of emergency activations
func (o *MetricsObserver) GetEmergencyCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.emergencyCount
}

// GetRejectionCount returns the number of refused commands
func (o *MetricsObserver) GetRejectionCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.rejectionCount
}

// GetErrorCount returns the number of errors
func (o *MetricsObserver) GetErrorCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.errorCount
}

// Reset resets all metrics
func (o *MetricsObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.phaseVisits = make(map[intersection.Phase]int)
	o.phaseTimeSpent = make(map[intersection.Phase]time.Duration)
	o.inputCounts = make(map[intersection.Input]int)
	o.transitionCounts = make(map[string]int)
	o.emergencyCount = 0
	o.rejectionCount = 0
	o.errorCount = 0
	o.lastPhaseEntry = time.Time{}
}
