package intersection

import (
	"fmt"
	"sync"
	"time"
)

// Observer represents an entity that observes the controller
type Observer interface {
	// Required methods

	// OnPhaseChange is called when the displayed phase changes
	OnPhaseChange(from Phase, to Phase, input Input, at time.Time)

	// OnEmergencyChange is called when the emergency episode moves on
	OnEmergencyChange(from EmergencyState, to EmergencyState, at time.Time)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	// OnLogAppend is called for every entry added to the event log
	OnLogAppend(entry LogEntry)

	// OnRequestRejected is called when a command is refused
	OnRequestRejected(err *TransitionError, at time.Time)

	// OnRunStateChange is called when the simulation is paused or resumed
	OnRunStateChange(paused bool, at time.Time)

	// OnSimulationComplete is called once the cycle limit is exceeded
	OnSimulationComplete(snapshot Snapshot)

	// OnError is called for non-fatal failures such as persistence errors
	OnError(err error)
}

// BaseObserver provides a default implementation with no-op methods
type BaseObserver struct{}

// OnPhaseChange implements the required Observer method
func (o *BaseObserver) OnPhaseChange(from Phase, to Phase, input Input, at time.Time) {}

// OnEmergencyChange implements the required Observer method
func (o *BaseObserver) OnEmergencyChange(from EmergencyState, to EmergencyState, at time.Time) {}

// OnLogAppend implements the optional ExtendedObserver method
func (o *BaseObserver) OnLogAppend(entry LogEntry) {}

// OnRequestRejected implements the optional ExtendedObserver method
func (o *BaseObserver) OnRequestRejected(err *TransitionError, at time.Time) {}

// OnRunStateChange implements the optional ExtendedObserver method
func (o *BaseObserver) OnRunStateChange(paused bool, at time.Time) {}

// OnSimulationComplete implements the optional ExtendedObserver method
func (o *BaseObserver) OnSimulationComplete(snapshot Snapshot) {}

// OnError implements the optional ExtendedObserver method
func (o *BaseObserver) OnError(err error) {}

// ObserverManager manages a collection of observers
type ObserverManager struct {
	mutex     sync.RWMutex
	observers []Observer
}

// NewObserverManager creates a new observer manager
func NewObserverManager() *ObserverManager {
	return &ObserverManager{
		observers: make([]Observer, 0),
	}
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			break
		}
	}
}

func (om *ObserverManager) list() []Observer {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}

// guard runs fn for observer, turning a panic into an OnError notification
func guard(observer Observer, method string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if extObs, ok := observer.(ExtendedObserver); ok {
				func() {
					defer func() { recover() }()
					extObs.OnError(fmt.Errorf("observer panic in %s: %v", method, r))
				}()
			}
		}
	}()
	fn()
}

// NotifyPhaseChange notifies all observers of a phase change
func (om *ObserverManager) NotifyPhaseChange(from Phase, to Phase, input Input, at time.Time) {
	for _, observer := range om.list() {
		guard(observer, "OnPhaseChange", func() {
			observer.OnPhaseChange(from, to, input, at)
		})
	}
}

// NotifyEmergencyChange notifies all observers of an emergency state change
func (om *ObserverManager) NotifyEmergencyChange(from EmergencyState, to EmergencyState, at time.Time) {
	for _, observer := range om.list() {
		guard(observer, "OnEmergencyChange", func() {
			observer.OnEmergencyChange(from, to, at)
		})
	}
}

// NotifyLogAppend notifies all observers of a new log entry
func (om *ObserverManager) NotifyLogAppend(entry LogEntry) {
	for _, observer := range om.list() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			guard(observer, "OnLogAppend", func() {
				extObs.OnLogAppend(entry)
			})
		}
	}
}

// NotifyRequestRejected notifies all observers of a refused command
func (om *ObserverManager) NotifyRequestRejected(err *TransitionError, at time.Time) {
	for _, observer := range om.list() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			guard(observer, "OnRequestRejected", func() {
				extObs.OnRequestRejected(err, at)
			})
		}
	}
}

// NotifyRunStateChange notifies all observers of pause and resume
func (om *ObserverManager) NotifyRunStateChange(paused bool, at time.Time) {
	for _, observer := range om.list() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			guard(observer, "OnRunStateChange", func() {
				extObs.OnRunStateChange(paused, at)
			})
		}
	}
}

// NotifySimulationComplete notifies all observers that the run has ended
func (om *ObserverManager) NotifySimulationComplete(snapshot Snapshot) {
	for _, observer := range om.list() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			guard(observer, "OnSimulationComplete", func() {
				extObs.OnSimulationComplete(snapshot)
			})
		}
	}
}

// NotifyError notifies all observers of errors
func (om *ObserverManager) NotifyError(err error) {
	for _, observer := range om.list() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			func() {
				defer func() { recover() }()
				extObs.OnError(err)
			}()
		}
	}
}
