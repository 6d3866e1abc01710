package storage

import "context"

// Table is a thin, non-owning view binding a StateStorage, a TableInfo,
// and the block number in effect when the view was opened. A Table must
// not outlive the StateStorage it was opened against.
type Table struct {
	storage     *StateStorage
	info        *TableInfo
	blockNumber uint64
}

// TableInfo returns the schema bound to this view.
func (t *Table) TableInfo() *TableInfo { return t.info }

// NewEntry returns a fresh, normal-status entry sized to the table's
// schema, stamped with the view's block number.
func (t *Table) NewEntry() Entry {
	return newEntryFor(t.info, t.blockNumber)
}

// NewDeletedEntry returns a fresh entry already marked DELETED: the
// tombstone written by a logical row deletion.
func (t *Table) NewDeletedEntry() Entry {
	e := t.NewEntry()
	e.SetStatus(StatusDeleted)
	return e
}

// GetRow reads a single row by key.
func (t *Table) GetRow(key string) (*Entry, error) {
	return t.storage.GetRow(t.info.Name(), key)
}

// GetRows reads multiple rows, preserving the order and length of keys.
func (t *Table) GetRows(keys []string) ([]*Entry, error) {
	return t.storage.GetRows(t.info.Name(), keys)
}

// GetPrimaryKeys enumerates keys satisfying cond.
func (t *Table) GetPrimaryKeys(cond *Condition) ([]string, error) {
	return t.storage.GetPrimaryKeys(t.info.Name(), cond)
}

// SetRow writes entry under key.
func (t *Table) SetRow(key string, entry Entry) (bool, error) {
	return t.storage.SetRow(t.info.Name(), key, entry)
}

// AsyncGetRow is the async mirror of GetRow.
func (t *Table) AsyncGetRow(ctx context.Context, key string, cb func(error, *Entry)) {
	t.storage.AsyncGetRow(ctx, t.info.Name(), key, cb)
}

// AsyncGetRows is the async mirror of GetRows.
func (t *Table) AsyncGetRows(ctx context.Context, keys []string, cb func(error, []*Entry)) {
	t.storage.AsyncGetRows(ctx, t.info.Name(), keys, cb)
}

// AsyncGetPrimaryKeys is the async mirror of GetPrimaryKeys.
func (t *Table) AsyncGetPrimaryKeys(ctx context.Context, cond *Condition, cb func(error, []string)) {
	t.storage.AsyncGetPrimaryKeys(ctx, t.info.Name(), cond, cb)
}

// AsyncSetRow is the async mirror of SetRow.
func (t *Table) AsyncSetRow(ctx context.Context, key string, entry Entry, cb func(error, bool)) {
	t.storage.AsyncSetRow(ctx, t.info.Name(), key, entry, cb)
}
