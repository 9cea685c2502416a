package intersection

import "time"

// RequestPedestrian registers a crossing request. The request is served at
// the next transition; it never cuts the running phase short. It returns
// false when the walk phase is showing, a request is already pending, or the
// simulation is complete.
func (e *Engine) RequestPedestrian() bool {
	accepted := false
	e.do(func() {
		now := e.clock.Now()
		switch {
		case e.completed:
			e.reject(now, InputPedestrianRequest, "Pedestrian request", "simulation complete")
		case e.phase == PedestrianWalk:
			e.reject(now, InputPedestrianRequest, "Pedestrian request", "already in pedestrian phase")
		case e.pending:
			e.reject(now, InputPedestrianRequest, "Pedestrian request", "request already pending")
		default:
			e.pending = true
			e.stats.requests++
			e.appendLog(now, KindRequest, InputPedestrianRequest, "Pedestrian crossing requested")
			accepted = true
		}
	})
	return accepted
}

// ActivateEmergency holds every approach at red for the configured
// emergency time, then clears and resumes the interrupted phase.
// It returns false unless the emergency state is STANDBY.
func (e *Engine) ActivateEmergency() bool {
	return e.override(InputEmergencyOverride, "")
}

// ForceRed is the operator all-red command; it runs the emergency override
func (e *Engine) ForceRed() bool {
	return e.override(InputForceRed, "Force red command issued")
}

// ForceGreen is the operator force-green command. There is no safe way to
// jump straight to a green phase, so it also runs the emergency override.
func (e *Engine) ForceGreen() bool {
	return e.override(InputForceGreen, "Force green command issued")
}

func (e *Engine) override(input Input, command string) bool {
	activated := false
	e.do(func() {
		now := e.clock.Now()
		if command != "" {
			e.appendLog(now, KindControl, input, command)
		}
		switch {
		case e.completed:
			e.reject(now, input, "Emergency override", "simulation complete")
			return
		case e.emergency != EmergencyStandby:
			e.reject(now, input, "Emergency override", "override already in progress")
			return
		}

		e.closeSegment(now)
		e.scheduler.CancelPurpose(PurposeTransition)
		e.setEmergency(now, EmergencyActivated)
		e.stats.emergencies++
		e.appendLog(now, KindEmergency, input, "Emergency override activated - all lights red")
		e.scheduler.Schedule(PurposeEmergencyActivate, float64(e.config.Emergency), e.speed, e.onTimer)
		activated = true
	})
	return activated
}

// beginClearing ends the all-red hold
func (e *Engine) beginClearing() {
	now := e.clock.Now()
	e.setEmergency(now, EmergencyClearing)
	e.appendLog(now, KindEmergency, InputEmergencyOverride, "Emergency clearing - resuming normal operation")
	e.scheduler.Schedule(PurposeEmergencyClear, float64(e.config.Clearing), e.speed, e.onTimer)
}

// cancelEmergency returns to normal operation. The interrupted phase
// restarts with its full duration.
func (e *Engine) cancelEmergency() {
	now := e.clock.Now()
	e.setEmergency(now, EmergencyStandby)
	e.appendLog(now, KindEmergency, InputNone, "Emergency override cancelled")
	e.phaseElapsed = 0
	if !e.paused && !e.completed {
		e.armTransition(now)
	}
}

func (e *Engine) setEmergency(now time.Time, to EmergencyState) {
	from := e.emergency
	e.emergency = to
	e.queue(func() { e.observers.NotifyEmergencyChange(from, to, now) })
}
