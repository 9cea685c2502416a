package observers_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/intersection"
	"github.com/anggasct/intersection/pkg/observers"
)

var epoch = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func runningEngine(t *testing.T, obs ...intersection.Observer) (*intersection.Engine, *intersection.FakeClock) {
	t.Helper()
	clock := intersection.NewFakeClock(epoch)
	builder := intersection.NewBuilder().Name("obs").Clock(clock).Seed(11)
	for _, o := range obs {
		builder = builder.Observer(o)
	}
	engine, err := builder.Build()
	require.NoError(t, err)
	engine.Play()
	return engine, clock
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observer := observers.NewLoggingObserver(observers.LogInfo, "north")
	observer.SetLogger(logger)
	var _ intersection.ExtendedObserver = observer

	engine, clock := runningEngine(t, observer)
	clock.Advance(5 * time.Second)
	engine.RequestPedestrian()
	engine.RequestPedestrian()
	engine.ActivateEmergency()

	out := buf.String()
	assert.Contains(t, out, "Phase: NS_GREEN_EW_RED -> NS_YELLOW_EW_RED on TIMER_EXPIRED")
	assert.Contains(t, out, "component=north")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "request already pending")
	assert.Contains(t, out, "Emergency: STANDBY -> ACTIVATED")
	assert.NotContains(t, out, "Pedestrian crossing requested", "log entries are debug level")
}

func TestLoggingObserver_LevelAndFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observer := observers.NewLoggingObserver(observers.LogError, "")
	observer.SetLogger(logger)
	observer.SetFormatter(func(level observers.LogLevel, format string, args ...interface{}) string {
		return "custom " + strings.ToUpper(format)
	})

	observer.OnPhaseChange(intersection.NSGreenEWRed, intersection.NSYellowEWRed, intersection.InputTimerExpired, epoch)
	assert.Empty(t, buf.String(), "info is below the error threshold")

	observer.OnError(errors.New("disk"))
	assert.Contains(t, buf.String(), "custom ERROR: %V")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestDefaultLoggingObserver(t *testing.T) {
	observer := observers.NewDefaultLoggingObserver()
	require.NotNil(t, observer)
	observer.SetLogger(nil)
	observer.OnRunStateChange(true, epoch)
}

func TestMetricsObserver(t *testing.T) {
	metrics := observers.NewMetricsObserver()
	engine, clock := runningEngine(t, metrics)

	clock.Advance(17 * time.Second)
	engine.RequestPedestrian()
	engine.RequestPedestrian()
	clock.Advance(5 * time.Second)
	engine.ActivateEmergency()

	visits := metrics.GetPhaseVisitCounts()
	assert.Equal(t, 1, visits[intersection.NSGreenEWRed], "the initial phase is not a visit")
	assert.Equal(t, 2, visits[intersection.PedestrianWalk])

	spent := metrics.GetPhaseTimeSpent()
	assert.Equal(t, 5*time.Second, spent[intersection.NSRedEWGreen])
	assert.Equal(t, 5*time.Second, spent[intersection.NSGreenEWRed], "the first phase is only timed once entered")

	inputs := metrics.GetInputCounts()
	assert.Equal(t, 5, inputs[intersection.InputTimerExpired])
	assert.Equal(t, 1, inputs[intersection.InputPedestrianRequest])

	assert.Equal(t, 1, metrics.GetTransitionCounts()["NS_GREEN_EW_RED->PEDESTRIAN_WALK"])
	assert.Equal(t, 1, metrics.GetEmergencyCount())
	assert.Equal(t, 1, metrics.GetRejectionCount())
	assert.Zero(t, metrics.GetErrorCount())

	metrics.Reset()
	assert.Empty(t, metrics.GetPhaseVisitCounts())
	assert.Zero(t, metrics.GetEmergencyCount())
}

func TestValidationObserver_CleanRun(t *testing.T) {
	validation := observers.NewValidationObserver()
	for _, p := range intersection.Phases() {
		validation.AddExpectedPhase(p)
	}

	engine, clock := runningEngine(t, validation)
	clock.Advance(3 * time.Second)
	engine.RequestPedestrian()
	clock.Advance(4 * time.Second)
	engine.ActivateEmergency()
	clock.Advance(9 * time.Second)
	engine.Reset()

	assert.False(t, validation.HasViolations(), "%v", validation.GetViolations())
	assert.Contains(t, validation.GetUnvisitedPhases(), intersection.NSYellowEWRed)
}

func TestValidationObserver_Violations(t *testing.T) {
	validation := observers.NewValidationObserver()

	validation.OnPhaseChange(intersection.NSGreenEWRed, intersection.NSRedEWGreen, intersection.InputTimerExpired, epoch)
	validation.OnEmergencyChange(intersection.EmergencyStandby, intersection.EmergencyClearing, epoch)
	validation.OnPhaseChange(intersection.NSRedEWGreen, intersection.NSRedEWYellow, intersection.InputTimerExpired, epoch)
	validation.OnError(errors.New("boom"))

	violations := validation.GetViolations()
	require.Len(t, violations, 4)
	assert.Contains(t, violations[0], "Invalid transition")
	assert.Contains(t, violations[1], "Invalid emergency change")
	assert.Contains(t, violations[2], "during emergency")

	validation.Reset()
	assert.False(t, validation.HasViolations())
}
