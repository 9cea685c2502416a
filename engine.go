package intersection

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/anggasct/intersection/store"
)

// Engine is a single intersection controller. All state lives on the
// instance; engines are independent of each other.
type Engine struct {
	name      string
	mutex     sync.Mutex
	clock     Clock
	scheduler *Scheduler
	observers *ObserverManager
	logger    *slog.Logger
	store     store.Store
	rng       *rand.Rand

	config       Config
	density      Density
	speed        float64
	initialSpeed float64

	phase     Phase
	emergency EmergencyState
	pending   bool
	cycle     int
	paused    bool
	completed bool

	// Simulated seconds already spent in the current phase since it was
	// last (re)started, plus the open timing segment.
	phaseElapsed float64
	segmentOpen  bool
	segmentStart time.Time
	segmentSpeed float64

	stats collector
	log   *EventLog

	// notifications queued under the mutex, dispatched after unlock
	outbox []func()

	// saves run after unlock; saveSeq orders them under mutex and
	// savedSeq, guarded by saveMutex, drops any that arrive out of order
	saveSeq   uint64
	saveMutex sync.Mutex
	savedSeq  map[string]uint64
}

// Snapshot is a consistent read-only view of the engine
type Snapshot struct {
	Name              string         `json:"name"`
	Time              time.Time      `json:"time"`
	Phase             Phase          `json:"phase"`
	NextPhase         Phase          `json:"next_phase"`
	NextInput         Input          `json:"next_input"`
	Emergency         EmergencyState `json:"emergency"`
	PedestrianPending bool           `json:"pedestrian_pending"`
	Cycle             int            `json:"cycle"`
	MaxCycles         int            `json:"max_cycles"`
	Paused            bool           `json:"paused"`
	Completed         bool           `json:"completed"`
	SpeedFactor       float64        `json:"speed_factor"`
	Density           Density        `json:"density"`
	Signals           Signals        `json:"signals"`
	PhaseSeconds      float64        `json:"phase_seconds"`
	Remaining         time.Duration  `json:"remaining"`
	Statistics        Statistics     `json:"statistics"`
}

// New creates an engine with the default configuration and the wall clock
func New() *Engine {
	e, err := NewBuilder().Build()
	if err != nil {
		// defaults always validate
		panic(err)
	}
	return e
}

// do runs fn under the engine mutex and then dispatches queued notifications
func (e *Engine) do(fn func()) {
	e.mutex.Lock()
	fn()
	notes := e.outbox
	e.outbox = nil
	e.mutex.Unlock()

	for _, note := range notes {
		note()
	}
}

func (e *Engine) queue(note func()) {
	e.outbox = append(e.outbox, note)
}

// Name identifies the engine, and namespaces its persisted keys
func (e *Engine) Name() string {
	return e.name
}

// AddObserver adds an observer
func (e *Engine) AddObserver(observer Observer) {
	e.observers.AddObserver(observer)
}

// RemoveObserver removes an observer
func (e *Engine) RemoveObserver(observer Observer) {
	e.observers.RemoveObserver(observer)
}

// Phase returns the current phase
func (e *Engine) Phase() Phase {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.phase
}

// EmergencyState returns the emergency episode state
func (e *Engine) EmergencyState() EmergencyState {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.emergency
}

// PedestrianPending reports whether a crossing request is waiting
func (e *Engine) PedestrianPending() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.pending
}

// Cycle returns the current cycle number, starting at 1
func (e *Engine) Cycle() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.cycle
}

// Paused reports whether normal advancement is suspended
func (e *Engine) Paused() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.paused
}

// Completed reports whether the cycle limit has been exceeded
func (e *Engine) Completed() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.completed
}

// SpeedFactor returns the current speed multiplier
func (e *Engine) SpeedFactor() float64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.speed
}

// Density returns the simulated traffic level
func (e *Engine) Density() Density {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.density
}

// Config returns the active configuration
func (e *Engine) Config() Config {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.config
}

// Signals returns what the intersection currently displays
func (e *Engine) Signals() Signals {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.signalsLocked()
}

// Statistics returns a copy of the counters
func (e *Engine) Statistics() Statistics {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.statisticsLocked()
}

// Log returns the event log, most recent first
func (e *Engine) Log() []LogEntry {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.log.Entries()
}

// Transitions returns the transition table used by the engine
func (e *Engine) Transitions() []Transition {
	return Transitions()
}

// Snapshot returns a consistent view of the engine
func (e *Engine) Snapshot() Snapshot {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) signalsLocked() Signals {
	if e.emergency != EmergencyStandby {
		return allRed
	}
	return SignalsFor(e.phase)
}

func (e *Engine) statisticsLocked() Statistics {
	stats := e.stats.snapshot(e.throughputCycles())
	if e.segmentOpen {
		stats.PhaseSeconds[e.phase] += e.openSegmentSeconds(e.clock.Now())
	}
	return stats
}

func (e *Engine) snapshotLocked() Snapshot {
	next, input := NextPhase(e.phase, e.pending), deciding(e.phase, e.pending)
	if e.emergency == EmergencyActivated {
		next, input = e.phase, InputEmergencyOverride
	}
	remaining, _ := e.scheduler.Remaining(PurposeTransition)
	return Snapshot{
		Name:              e.name,
		Time:              e.clock.Now(),
		Phase:             e.phase,
		NextPhase:         next,
		NextInput:         input,
		Emergency:         e.emergency,
		PedestrianPending: e.pending,
		Cycle:             e.cycle,
		MaxCycles:         e.config.MaxCycles,
		Paused:            e.paused,
		Completed:         e.completed,
		SpeedFactor:       e.speed,
		Density:           e.density,
		Signals:           e.signalsLocked(),
		PhaseSeconds:      e.config.PhaseSeconds(e.phase, e.density),
		Remaining:         remaining,
		Statistics:        e.statisticsLocked(),
	}
}

// Play starts or resumes normal advancement. The current phase restarts
// with its full duration. It reports whether the engine was paused.
func (e *Engine) Play() bool {
	resumed := false
	e.do(func() {
		now := e.clock.Now()
		if e.completed {
			e.reject(now, InputNone, "Play", "simulation complete")
			return
		}
		if !e.paused {
			return
		}
		e.paused = false
		e.appendLog(now, KindControl, InputNone, "Simulation resumed")
		if e.emergency == EmergencyStandby {
			e.phaseElapsed = 0
			e.armTransition(now)
		}
		e.queue(func() { e.observers.NotifyRunStateChange(false, now) })
		resumed = true
	})
	return resumed
}

// Pause suspends normal advancement. Emergency episodes keep running.
// Pausing a paused engine has no effect.
func (e *Engine) Pause() {
	e.do(func() {
		if e.paused {
			return
		}
		now := e.clock.Now()
		e.paused = true
		e.closeSegment(now)
		e.scheduler.CancelPurpose(PurposeTransition)
		e.appendLog(now, KindControl, InputNone, "Simulation paused")
		e.queue(func() { e.observers.NotifyRunStateChange(true, now) })
	})
}

// Reset cancels every timer and returns the engine to its initial,
// paused state. Configuration, density and the event log are kept.
func (e *Engine) Reset() {
	e.do(func() {
		now := e.clock.Now()
		e.scheduler.CancelAll()

		fromPhase, fromEmergency, wasPaused := e.phase, e.emergency, e.paused
		e.phase = NSGreenEWRed
		e.emergency = EmergencyStandby
		e.pending = false
		e.cycle = 1
		e.paused = true
		e.completed = false
		e.speed = e.initialSpeed
		e.phaseElapsed = 0
		e.segmentOpen = false
		e.stats.reset()

		e.appendLog(now, KindControl, InputNone, "Simulation reset")
		if fromPhase != e.phase {
			e.queue(func() { e.observers.NotifyPhaseChange(fromPhase, NSGreenEWRed, InputNone, now) })
		}
		if fromEmergency != e.emergency {
			e.queue(func() { e.observers.NotifyEmergencyChange(fromEmergency, EmergencyStandby, now) })
		}
		if !wasPaused {
			e.queue(func() { e.observers.NotifyRunStateChange(true, now) })
		}
	})
}

// Advance ends the current phase immediately, as if its timer had expired.
// It reports whether the engine moved on.
func (e *Engine) Advance() bool {
	moved := false
	e.do(func() {
		moved = e.advance()
	})
	return moved
}

// SetSpeedFactor changes the speed multiplier. The in-flight transition is
// rescheduled with its remaining simulated time at the new speed.
func (e *Engine) SetSpeedFactor(factor float64) error {
	if err := validateSpeed(factor); err != nil {
		return err
	}
	e.do(func() {
		now := e.clock.Now()
		e.closeSegment(now)
		e.speed = factor
		e.appendLog(now, KindControl, InputNone, fmt.Sprintf("Simulation speed changed to %gx", factor))
		if e.scheduler.Pending(PurposeTransition) {
			e.armTransition(now)
		}
	})
	return nil
}

func validateSpeed(factor float64) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return NewConfigurationError("speed_factor", fmt.Sprintf("must be a positive number, got %v", factor))
	}
	return nil
}

// SetDensity changes the simulated traffic level
func (e *Engine) SetDensity(density Density) error {
	if !density.Valid() {
		return NewConfigurationError("density", fmt.Sprintf("unknown density %d", int(density)))
	}
	e.do(func() {
		now := e.clock.Now()
		e.density = density
		e.appendLog(now, KindConfig, InputNone, fmt.Sprintf("Traffic density set to %s", density))
		if e.config.ScaleGreenWithDensity && e.scheduler.Pending(PurposeTransition) {
			e.armTransition(now)
		}
	})
	return nil
}

// UpdateConfiguration merges update into the active configuration. An
// invalid result is rejected and the previous configuration retained.
// A pending transition is rescheduled against the new duration.
func (e *Engine) UpdateConfiguration(update ConfigUpdate) error {
	var err error
	e.do(func() {
		now := e.clock.Now()
		merged := e.config.Merge(update)
		if err = merged.Validate(); err != nil {
			e.appendLog(now, KindWarning, InputNone, fmt.Sprintf("Configuration rejected: %v", err))
			return
		}
		e.config = merged
		e.appendLog(now, KindConfig, InputNone, "Configuration updated")
		e.saveConfigLocked()
		if e.scheduler.Pending(PurposeTransition) {
			e.armTransition(now)
		}
	})
	return err
}

// onTimer is the single entry point for every scheduler callback
func (e *Engine) onTimer(h Handle) {
	e.do(func() {
		if !e.scheduler.Claim(h) {
			return
		}
		switch h.Purpose {
		case PurposeTransition:
			e.advance()
		case PurposeEmergencyActivate:
			e.beginClearing()
		case PurposeEmergencyClear:
			e.cancelEmergency()
		}
	})
}

// advance performs one transition of the controller
func (e *Engine) advance() bool {
	if e.completed || e.emergency != EmergencyStandby {
		return false
	}

	now := e.clock.Now()
	e.closeSegment(now)
	e.scheduler.CancelPurpose(PurposeTransition)

	from := e.phase
	if from.IsGreen() {
		e.stats.cars += SimulateArrivals(from, e.density, e.rng)
	}

	input := deciding(from, e.pending)
	to := NextPhase(from, e.pending)
	if input == InputPedestrianRequest {
		e.pending = false
		e.stats.served++
	}

	if from == PedestrianWalk && to == NSGreenEWRed {
		e.cycle++
		e.stats.completedCycles++
		if e.config.Bounded() && e.cycle > e.config.MaxCycles {
			e.complete(now)
			return true
		}
	}

	e.phase = to
	e.phaseElapsed = 0
	e.stats.transitions++
	e.appendLog(now, KindTransition, input, fmt.Sprintf("State changed from %s to %s", from, to))
	e.queue(func() { e.observers.NotifyPhaseChange(from, to, input, now) })

	if !e.paused {
		e.armTransition(now)
	}
	return true
}

// complete stops the run once the cycle limit is exceeded
func (e *Engine) complete(now time.Time) {
	e.completed = true
	e.scheduler.CancelAll()
	e.appendLog(now, KindComplete, InputNone, fmt.Sprintf(
		"Simulation complete: finished %d cycles, %d pedestrian requests, %d cars, throughput %.1f cars/cycle",
		e.stats.completedCycles, e.stats.served, e.stats.cars, Throughput(e.stats.cars, e.throughputCycles())))
	snapshot := e.snapshotLocked()
	e.queue(func() { e.observers.NotifySimulationComplete(snapshot) })
}

// throughputCycles is the cycle divisor for throughput. Once complete the
// counter has passed the limit, so the finished cycles are used instead.
func (e *Engine) throughputCycles() int {
	if e.completed {
		return e.stats.completedCycles
	}
	return e.cycle
}

// armTransition schedules the end of the current phase from its remaining
// simulated time at the current speed
func (e *Engine) armTransition(now time.Time) {
	e.closeSegment(now)
	e.openSegment(now)
	remaining := math.Max(0, e.config.PhaseSeconds(e.phase, e.density)-e.phaseElapsed)
	e.scheduler.Schedule(PurposeTransition, remaining, e.speed, e.onTimer)
}

func (e *Engine) openSegment(now time.Time) {
	e.segmentOpen = true
	e.segmentStart = now
	e.segmentSpeed = e.speed
}

func (e *Engine) openSegmentSeconds(now time.Time) float64 {
	return now.Sub(e.segmentStart).Seconds() * e.segmentSpeed
}

func (e *Engine) closeSegment(now time.Time) {
	if !e.segmentOpen {
		return
	}
	simulated := e.openSegmentSeconds(now)
	e.phaseElapsed += simulated
	e.stats.addPhaseTime(e.phase, simulated)
	e.segmentOpen = false
}

// appendLog records an entry and queues its notification and persistence
func (e *Engine) appendLog(now time.Time, kind EntryKind, input Input, message string) {
	entry := NewLogEntry(now, kind, e.phase, input, message)
	e.log.Append(entry)
	e.queue(func() { e.observers.NotifyLogAppend(entry) })
	e.saveLogLocked()
}

// reject reports a refused command through the log and observers
func (e *Engine) reject(now time.Time, input Input, command, reason string) {
	err := NewTransitionError(e.phase, e.emergency, input, reason)
	e.appendLog(now, KindRejected, input, fmt.Sprintf("%s ignored - %s", command, reason))
	e.queue(func() { e.observers.NotifyRequestRejected(err, now) })
}
