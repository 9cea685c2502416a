package intersection

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/intersection/store"
)

// failingStore fails every operation
type failingStore struct {
	err error
}

func (s failingStore) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, s.err
}

func (s failingStore) Save(ctx context.Context, key string, data []byte) error {
	return s.err
}

func buildWithStore(t *testing.T, st store.Store, observer Observer, logger *slog.Logger) *Engine {
	t.Helper()
	builder := NewBuilder().Name("north").Clock(NewFakeClock(testEpoch)).Seed(1).Store(st)
	if observer != nil {
		builder = builder.Observer(observer)
	}
	if logger != nil {
		builder = builder.Logger(logger)
	}
	engine, err := builder.Build()
	require.NoError(t, err)
	return engine
}

func TestPersist_ConfigurationSurvivesRestart(t *testing.T) {
	st := store.NewMemory()
	first := buildWithStore(t, st, nil, nil)
	require.NoError(t, first.UpdateConfiguration(ConfigUpdate{NSGreen: Int(11), MaxCycles: Int(3)}))

	data, err := st.Load(context.Background(), "north.config")
	require.NoError(t, err)
	assert.Contains(t, string(data), "ns_green: 11")

	second := buildWithStore(t, st, nil, nil)
	assert.Equal(t, 11, second.Config().NSGreen)
	assert.Equal(t, 3, second.Config().MaxCycles)
}

func TestPersist_EventLogSurvivesRestart(t *testing.T) {
	st := store.NewMemory()
	first := buildWithStore(t, st, nil, nil)
	first.Play()
	first.RequestPedestrian()

	second := buildWithStore(t, st, nil, nil)
	log := second.Log()
	require.Len(t, log, 2)
	assert.Equal(t, "Pedestrian crossing requested", log[0].Message)
	assert.Equal(t, first.Log()[0].ID, log[0].ID)
	assert.ElementsMatch(t, []string{"north.eventlog"}, st.Keys(), "configuration is only saved once it changes")
}

func TestPersist_NamesAreIndependent(t *testing.T) {
	st := store.NewMemory()
	north := buildWithStore(t, st, nil, nil)
	require.NoError(t, north.UpdateConfiguration(ConfigUpdate{Pedestrian: Int(9)}))

	south, err := NewBuilder().Name("south").Clock(NewFakeClock(testEpoch)).Store(st).Build()
	require.NoError(t, err)
	assert.Equal(t, DefaultPedestrian, south.Config().Pedestrian)
}

func TestPersist_FailuresFallBackToDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	observer := NewTestObserver()
	cause := errors.New("storage offline")

	engine := buildWithStore(t, failingStore{err: cause}, observer, logger)
	assert.Equal(t, DefaultConfig(), engine.Config())
	assert.Empty(t, engine.Log())

	require.Equal(t, 2, observer.ErrorCount(), "one error per key on load")
	assert.True(t, IsPersistenceError(observer.Errors[0]))
	assert.ErrorIs(t, observer.Errors[0], cause)
	assert.Contains(t, buf.String(), "persistence failed")

	// saves fail too, but the engine keeps working
	require.NoError(t, engine.UpdateConfiguration(ConfigUpdate{NSGreen: Int(6)}))
	assert.Equal(t, 6, engine.Config().NSGreen)
	assert.True(t, engine.RequestPedestrian())
	assert.Greater(t, observer.ErrorCount(), 2)
}

func TestPersist_CorruptBlobsAreIgnored(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, "north.config", []byte("ns_green: -4\n")))
	require.NoError(t, st.Save(ctx, "north.eventlog", []byte("{broken")))
	observer := NewTestObserver()

	engine := buildWithStore(t, st, observer, nil)
	assert.Equal(t, DefaultConfig(), engine.Config())
	assert.Empty(t, engine.Log())
	require.Equal(t, 2, observer.ErrorCount())

	var perr *PersistenceError
	require.ErrorAs(t, observer.Errors[0], &perr)
	assert.Equal(t, "decode", perr.Operation)
	assert.Equal(t, "north.config", perr.Key)
}

func TestPersist_MissingKeysAreNotErrors(t *testing.T) {
	observer := NewTestObserver()
	engine := buildWithStore(t, store.NewMemory(), observer, nil)

	assert.Equal(t, DefaultConfig(), engine.Config())
	assert.Zero(t, observer.ErrorCount())
}

func TestPersist_DirStore(t *testing.T) {
	dir, err := store.NewDir(t.TempDir())
	require.NoError(t, err)

	first := buildWithStore(t, dir, nil, nil)
	require.NoError(t, first.UpdateConfiguration(ConfigUpdate{Clearing: Int(4)}))

	second := buildWithStore(t, dir, nil, nil)
	assert.Equal(t, 4, second.Config().Clearing)
	require.NotEmpty(t, second.Log())
	assert.Equal(t, "Configuration updated", second.Log()[0].Message)
}

func TestPersist_OutOfOrderSavesKeepNewest(t *testing.T) {
	st := store.NewMemory()
	engine := buildWithStore(t, st, nil, nil)

	// two saves queued in order, then dispatched in reverse as racing
	// goroutines releasing their outboxes could do
	engine.mutex.Lock()
	engine.queueSave("north.eventlog", []byte("older"))
	engine.queueSave("north.eventlog", []byte("newer"))
	notes := engine.outbox
	engine.outbox = nil
	engine.mutex.Unlock()

	require.Len(t, notes, 2)
	notes[1]()
	notes[0]()

	data, err := st.Load(context.Background(), "north.eventlog")
	require.NoError(t, err)
	assert.Equal(t, "newer", string(data))
}

func TestPersist_FailedSaveDoesNotBlockRetry(t *testing.T) {
	engine := buildWithStore(t, store.NewMemory(), nil, nil)
	engine.store = failingStore{err: errors.New("disk full")}
	engine.save("north.config", []byte("first"), 5)

	st := store.NewMemory()
	engine.store = st
	engine.save("north.config", []byte("second"), 4)

	data, err := st.Load(context.Background(), "north.config")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
