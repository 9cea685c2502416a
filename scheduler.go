package intersection

import (
	"math"
	"sync"
	"time"
)

// Purpose names the logical timer slot a callback belongs to
type Purpose int

const (
	// PurposeTransition drives the normal end-of-phase advance
	PurposeTransition Purpose = iota
	// PurposeEmergencyActivate ends the all-red hold
	PurposeEmergencyActivate
	// PurposeEmergencyClear ends the clearing interval
	PurposeEmergencyClear

	purposeCount
)

func (p Purpose) String() string {
	switch p {
	case PurposeTransition:
		return "transition"
	case PurposeEmergencyActivate:
		return "emergency-activate"
	case PurposeEmergencyClear:
		return "emergency-clear"
	default:
		return "unknown"
	}
}

// Handle identifies one scheduled callback
type Handle struct {
	Purpose Purpose
	id      uint64
}

// Valid reports whether h refers to a scheduled callback
func (h Handle) Valid() bool {
	return h.id != 0
}

type slot struct {
	handle   Handle
	timer    Timer
	armedAt  time.Time
	deadline time.Time
}

// Scheduler arms single-shot callbacks, at most one per purpose
type Scheduler struct {
	clock  Clock
	mutex  sync.Mutex
	nextID uint64
	slots  [purposeCount]*slot
}

// NewScheduler creates a scheduler on top of clock
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock}
}

// Clock returns the underlying clock
func (s *Scheduler) Clock() Clock {
	return s.clock
}

// maxWaitSeconds is the longest wait a time.Duration can hold
const maxWaitSeconds = float64(math.MaxInt64) / float64(time.Second)

// Wait converts simulated seconds at speed into a wall duration. Waits too
// long for a time.Duration saturate at the maximum.
func Wait(seconds, speed float64) time.Duration {
	if seconds <= 0 || speed <= 0 || math.IsNaN(seconds) || math.IsNaN(speed) {
		return 0
	}
	w := seconds / speed
	if w >= maxWaitSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(w * float64(time.Second))
}

// Schedule arms cb to run after seconds/speed. Any callback already armed
// for the same purpose is cancelled first.
func (s *Scheduler) Schedule(purpose Purpose, seconds, speed float64, cb func(Handle)) Handle {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cancelLocked(purpose)

	s.nextID++
	h := Handle{Purpose: purpose, id: s.nextID}
	wait := Wait(seconds, speed)
	now := s.clock.Now()
	sl := &slot{handle: h, armedAt: now, deadline: now.Add(wait)}
	s.slots[purpose] = sl
	sl.timer = s.clock.AfterFunc(wait, func() { cb(h) })
	return h
}

// Cancel stops h if it is still armed
func (s *Scheduler) Cancel(h Handle) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sl := s.slots[h.Purpose]
	if sl == nil || sl.handle != h {
		return false
	}
	s.cancelLocked(h.Purpose)
	return true
}

// CancelPurpose stops whatever is armed for purpose
func (s *Scheduler) CancelPurpose(purpose Purpose) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cancelLocked(purpose)
}

// CancelAll stops every armed callback
func (s *Scheduler) CancelAll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for p := Purpose(0); p < purposeCount; p++ {
		s.cancelLocked(p)
	}
}

// Claim is called from a firing callback. It reports whether h is still the
// armed handle for its purpose and, if so, releases the slot.
func (s *Scheduler) Claim(h Handle) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sl := s.slots[h.Purpose]
	if sl == nil || sl.handle != h {
		return false
	}
	s.slots[h.Purpose] = nil
	return true
}

// Pending reports whether a callback is armed for purpose
func (s *Scheduler) Pending(purpose Purpose) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.slots[purpose] != nil
}

// Remaining returns the wall time left before purpose fires
func (s *Scheduler) Remaining(purpose Purpose) (time.Duration, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sl := s.slots[purpose]
	if sl == nil {
		return 0, false
	}
	left := sl.deadline.Sub(s.clock.Now())
	if left < 0 {
		left = 0
	}
	return left, true
}

func (s *Scheduler) cancelLocked(purpose Purpose) bool {
	sl := s.slots[purpose]
	if sl == nil {
		return false
	}
	if sl.timer != nil {
		sl.timer.Stop()
	}
	s.slots[purpose] = nil
	return true
}
