package intersection

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_MostRecentFirst(t *testing.T) {
	log := NewEventLog(3)
	for i := 1; i <= 5; i++ {
		log.Append(NewLogEntry(testEpoch, KindControl, NSGreenEWRed, InputNone, fmt.Sprintf("entry %d", i)))
	}

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 5", entries[0].Message)
	assert.Equal(t, "entry 4", entries[1].Message)
	assert.Equal(t, "entry 3", entries[2].Message)
	assert.Equal(t, 3, log.Capacity())
	assert.Equal(t, 3, log.Len())
}

func TestEventLog_DefaultCapacity(t *testing.T) {
	log := NewEventLog(0)
	assert.Equal(t, DefaultLogCapacity, log.Capacity())

	for i := 0; i < 60; i++ {
		log.Append(NewLogEntry(testEpoch, KindTransition, NSGreenEWRed, InputTimerExpired, "tick"))
	}
	assert.Equal(t, 50, log.Len())
}

func TestEventLog_EntriesAreCopies(t *testing.T) {
	log := NewEventLog(2)
	log.Append(NewLogEntry(testEpoch, KindRequest, NSGreenEWRed, InputPedestrianRequest, "original"))

	entries := log.Entries()
	entries[0].Message = "changed"
	assert.Equal(t, "original", log.Entries()[0].Message)
}

func TestLogEntry_Format(t *testing.T) {
	a := NewLogEntry(testEpoch, KindTransition, NSYellowEWRed, InputTimerExpired, "State changed")
	b := NewLogEntry(testEpoch, KindTransition, NSYellowEWRed, InputTimerExpired, "State changed")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "[12:00:00] State changed", a.String())
}

func TestEventLog_JSON(t *testing.T) {
	log := NewEventLog(4)
	for i := 0; i < 4; i++ {
		log.Append(NewLogEntry(testEpoch, KindTransition, Phase(i), InputTimerExpired, fmt.Sprintf("m%d", i)))
	}

	data, err := json.Marshal(log)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"NS_RED_EW_YELLOW"`)

	smaller := NewEventLog(2)
	require.NoError(t, json.Unmarshal(data, smaller))
	entries := smaller.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "m3", entries[0].Message)
	assert.Equal(t, NSRedEWYellow, entries[0].Phase)
	assert.Equal(t, InputTimerExpired, entries[0].Input)

	assert.Error(t, json.Unmarshal([]byte(`{"not":"a list"}`), smaller))
	assert.Equal(t, 2, smaller.Len(), "failed decode keeps the old entries")
}
