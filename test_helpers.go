package intersection

import (
	"sync"
	"testing"
	"time"
)

// TestObserver is a mock observer for testing that captures all observer events
type TestObserver struct {
	mutex       sync.RWMutex
	PhaseEvents []PhaseEvent
	Emergencies []EmergencyEvent
	Entries     []LogEntry
	Rejections  []*TransitionError
	RunStates   []bool
	Completions []Snapshot
	Errors      []error
}

type PhaseEvent struct {
	From  Phase
	To    Phase
	Input Input
	At    time.Time
}

type EmergencyEvent struct {
	From EmergencyState
	To   EmergencyState
	At   time.Time
}

// NewTestObserver creates a new test observer
func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

// Observer interface implementations
func (o *TestObserver) OnPhaseChange(from Phase, to Phase, input Input, at time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.PhaseEvents = append(o.PhaseEvents, PhaseEvent{From: from, To: to, Input: input, At: at})
}

func (o *TestObserver) OnEmergencyChange(from EmergencyState, to EmergencyState, at time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Emergencies = append(o.Emergencies, EmergencyEvent{From: from, To: to, At: at})
}

// ExtendedObserver interface implementations
func (o *TestObserver) OnLogAppend(entry LogEntry) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Entries = append(o.Entries, entry)
}

func (o *TestObserver) OnRequestRejected(err *TransitionError, at time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Rejections = append(o.Rejections, err)
}

func (o *TestObserver) OnRunStateChange(paused bool, at time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.RunStates = append(o.RunStates, paused)
}

func (o *TestObserver) OnSimulationComplete(snapshot Snapshot) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Completions = append(o.Completions, snapshot)
}

func (o *TestObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Errors = append(o.Errors, err)
}

// Helper methods for test assertions
func (o *TestObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.PhaseEvents = nil
	o.Emergencies = nil
	o.Entries = nil
	o.Rejections = nil
	o.RunStates = nil
	o.Completions = nil
	o.Errors = nil
}

func (o *TestObserver) PhaseChangeCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.PhaseEvents)
}

func (o *TestObserver) RejectionCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.Rejections)
}

func (o *TestObserver) ErrorCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.Errors)
}

func (o *TestObserver) LastPhaseChange() *PhaseEvent {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	if len(o.PhaseEvents) == 0 {
		return nil
	}
	event := o.PhaseEvents[len(o.PhaseEvents)-1]
	return &event
}

// Visited returns the target phases in the order they were entered
func (o *TestObserver) Visited() []Phase {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	phases := make([]Phase, len(o.PhaseEvents))
	for i, event := range o.PhaseEvents {
		phases[i] = event.To
	}
	return phases
}

// EmergencySequence returns the target emergency states in order
func (o *TestObserver) EmergencySequence() []EmergencyState {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	states := make([]EmergencyState, len(o.Emergencies))
	for i, event := range o.Emergencies {
		states[i] = event.To
	}
	return states
}

// Test engine builders - common engine configurations for testing

// testEpoch is the fake clock start used by the helpers
var testEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// CreateTestEngine builds an engine on a fake clock with a fixed seed and a
// recording observer attached. The engine is paused.
func CreateTestEngine(t *testing.T, updates ...ConfigUpdate) (*Engine, *FakeClock, *TestObserver) {
	t.Helper()
	clock := NewFakeClock(testEpoch)
	observer := NewTestObserver()
	builder := NewBuilder().
		Name("test").
		Clock(clock).
		Seed(42).
		Observer(observer)
	for _, update := range updates {
		builder = builder.Update(update)
	}
	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	return engine, clock, observer
}

// CreateRunningEngine is CreateTestEngine followed by Play
func CreateRunningEngine(t *testing.T, updates ...ConfigUpdate) (*Engine, *FakeClock, *TestObserver) {
	t.Helper()
	engine, clock, observer := CreateTestEngine(t, updates...)
	engine.Play()
	return engine, clock, observer
}

// AdvanceSeconds moves the fake clock forward by whole seconds
func AdvanceSeconds(clock *FakeClock, seconds int) {
	clock.Advance(time.Duration(seconds) * time.Second)
}

// Assertion helpers

func AssertPhase(t *testing.T, engine *Engine, expected Phase) {
	t.Helper()
	if current := engine.Phase(); current != expected {
		t.Errorf("Expected phase %s, got %s", expected, current)
	}
}

func AssertEmergency(t *testing.T, engine *Engine, expected EmergencyState) {
	t.Helper()
	if current := engine.EmergencyState(); current != expected {
		t.Errorf("Expected emergency state %s, got %s", expected, current)
	}
}

func AssertAllRed(t *testing.T, engine *Engine) {
	t.Helper()
	signals := engine.Signals()
	if signals.NorthSouth != Red || signals.EastWest != Red {
		t.Errorf("Expected all red, got NS %s EW %s", signals.NorthSouth, signals.EastWest)
	}
}

func AssertPhaseSequence(t *testing.T, observer *TestObserver, expected []Phase) {
	t.Helper()
	visited := observer.Visited()
	if len(visited) != len(expected) {
		t.Errorf("Expected %d phase changes %v, got %d %v", len(expected), expected, len(visited), visited)
		return
	}
	for i := range expected {
		if visited[i] != expected[i] {
			t.Errorf("Phase change %d: expected %s, got %s", i, expected[i], visited[i])
		}
	}
}
