package intersection

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anggasct/intersection/store"
)

const persistTimeout = 5 * time.Second

func (e *Engine) configKey() string {
	return e.name + ".config"
}

func (e *Engine) logKey() string {
	return e.name + ".eventlog"
}

// restore loads persisted configuration and event log. Any failure is
// reported and the engine keeps its defaults.
func (e *Engine) restore() {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if data, ok := e.load(ctx, e.configKey()); ok {
		cfg, err := ParseConfig(data)
		if err != nil {
			e.persistFailed("decode", e.configKey(), err)
		} else {
			e.config = cfg
			e.logger.Info("configuration restored", "key", e.configKey())
		}
	}

	if data, ok := e.load(ctx, e.logKey()); ok {
		restored := NewEventLog(e.log.Capacity())
		if err := json.Unmarshal(data, restored); err != nil {
			e.persistFailed("decode", e.logKey(), err)
		} else {
			e.log = restored
			e.logger.Info("event log restored", "entries", restored.Len())
		}
	}
}

func (e *Engine) load(ctx context.Context, key string) ([]byte, bool) {
	data, err := e.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.logger.Debug("nothing persisted", "key", key)
			return nil, false
		}
		e.persistFailed("load", key, err)
		return nil, false
	}
	return data, true
}

// saveConfigLocked queues a save of the active configuration
func (e *Engine) saveConfigLocked() {
	if e.store == nil {
		return
	}
	key := e.configKey()
	data, err := e.config.marshalYAML()
	if err != nil {
		e.queue(func() { e.persistFailed("encode", key, err) })
		return
	}
	e.queueSave(key, data)
}

// saveLogLocked queues a save of the event log
func (e *Engine) saveLogLocked() {
	if e.store == nil {
		return
	}
	key := e.logKey()
	data, err := json.Marshal(e.log)
	if err != nil {
		e.queue(func() { e.persistFailed("encode", key, err) })
		return
	}
	e.queueSave(key, data)
}

func (e *Engine) queueSave(key string, data []byte) {
	e.saveSeq++
	seq := e.saveSeq
	e.queue(func() { e.save(key, data, seq) })
}

// save writes data unless a later save of the same key already landed
func (e *Engine) save(key string, data []byte, seq uint64) {
	e.saveMutex.Lock()
	defer e.saveMutex.Unlock()

	if seq <= e.savedSeq[key] {
		e.logger.Debug("stale save skipped", "key", key, "seq", seq)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.store.Save(ctx, key, data); err != nil {
		e.persistFailed("save", key, err)
		return
	}
	if e.savedSeq == nil {
		e.savedSeq = make(map[string]uint64)
	}
	e.savedSeq[key] = seq
}

func (e *Engine) persistFailed(operation, key string, err error) {
	perr := NewPersistenceError(operation, key, err)
	e.logger.Warn("persistence failed", "operation", operation, "key", key, "error", err)
	e.observers.NotifyError(perr)
}
