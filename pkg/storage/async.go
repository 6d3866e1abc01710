package storage

import (
	"context"

	"github.com/google/uuid"
)

// run submits f to the configured executor, or spawns a bare goroutine
// when none is set.
func (s *StateStorage) run(f func()) {
	if s.executor != nil {
		s.executor.Submit(f)
		return
	}
	go f()
}

// traceAsync logs the start and completion of an async call under a
// correlation ID, so a burst of concurrent AsyncXxx calls can be followed
// through the logs of this storage. The ID is not passed on to the parent
// chain.
func (s *StateStorage) traceAsync(op, table, key string) (string, func(err error)) {
	id := uuid.NewString()
	s.logger.Debug("async call started", "op", op, "correlation_id", id, "table", table, "key", key)
	return id, func(err error) {
		if err != nil {
			s.logger.Debug("async call failed", "op", op, "correlation_id", id, "error", err)
			return
		}
		s.logger.Debug("async call completed", "op", op, "correlation_id", id)
	}
}

// AsyncGetRow is the async mirror of GetRow. The callback is invoked
// exactly once, never while this call holds s.mu.
func (s *StateStorage) AsyncGetRow(_ context.Context, table, key string, cb func(error, *Entry)) {
	_, done := s.traceAsync("GetRow", table, key)
	s.run(func() {
		e, err := s.GetRow(table, key)
		done(err)
		cb(err, e)
	})
}

// AsyncGetRows is the async mirror of GetRows.
func (s *StateStorage) AsyncGetRows(_ context.Context, table string, keys []string, cb func(error, []*Entry)) {
	_, done := s.traceAsync("GetRows", table, "")
	s.run(func() {
		es, err := s.GetRows(table, keys)
		done(err)
		cb(err, es)
	})
}

// AsyncGetPrimaryKeys is the async mirror of GetPrimaryKeys.
func (s *StateStorage) AsyncGetPrimaryKeys(_ context.Context, table string, cond *Condition, cb func(error, []string)) {
	_, done := s.traceAsync("GetPrimaryKeys", table, "")
	s.run(func() {
		keys, err := s.GetPrimaryKeys(table, cond)
		done(err)
		cb(err, keys)
	})
}

// AsyncSetRow is the async mirror of SetRow.
func (s *StateStorage) AsyncSetRow(_ context.Context, table, key string, entry Entry, cb func(error, bool)) {
	_, done := s.traceAsync("SetRow", table, key)
	s.run(func() {
		ok, err := s.SetRow(table, key, entry)
		done(err)
		cb(err, ok)
	})
}

// AsyncCreateTable is the async mirror of CreateTable.
func (s *StateStorage) AsyncCreateTable(_ context.Context, name string, valueFields []string, cb func(error, bool)) {
	_, done := s.traceAsync("CreateTable", name, "")
	s.run(func() {
		ok, err := s.CreateTable(name, valueFields)
		done(err)
		cb(err, ok)
	})
}
