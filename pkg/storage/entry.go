package storage

// Status is the lifecycle state of an Entry.
type Status uint8

const (
	// StatusNormal marks a live row.
	StatusNormal Status = 0
	// StatusDeleted marks a tombstone: present locally to mask a parent's
	// row, but invisible to GetRow callers.
	StatusDeleted Status = 1
)

// rowPayload is the data shared by CowCell clones of an Entry: the field
// vector and the running byte-capacity counter over it. Keeping capacity
// inside the shared payload (rather than on the outer Entry) means two
// Entry values sharing a payload always agree on capacity, even before
// either of them forks the payload by mutating.
type rowPayload struct {
	fields   []string
	capacity int
}

func cloneRowPayload(p rowPayload) rowPayload {
	fields := make([]string, len(p.fields))
	copy(fields, p.fields)
	return rowPayload{fields: fields, capacity: p.capacity}
}

// Entry is a single row: a status, a version for optimistic concurrency,
// the block number it was last written at, dirty/rollbacked bookkeeping
// flags, and a CowCell holding the field-value vector.
type Entry struct {
	status     Status
	num        uint64
	version    uint64
	dirty      bool
	rollbacked bool
	tableInfo  *TableInfo
	data       CowCell[rowPayload]
}

// NewEntry reconstructs an Entry from its constituent fields. It exists
// for collaborators outside this package — persistent backend leaves —
// that decode a row from their own wire format and need to hand back a
// real Entry rather than one built through Table.NewEntry.
func NewEntry(tableInfo *TableInfo, status Status, num, version uint64, fields []string) Entry {
	owned := make([]string, len(fields))
	capacity := 0
	for i, f := range fields {
		owned[i] = f
		capacity += len(f)
	}
	return Entry{
		status:    status,
		num:       num,
		version:   version,
		tableInfo: tableInfo,
		data:      NewCowCell(rowPayload{fields: owned, capacity: capacity}),
	}
}

// newEntryFor builds an empty Entry sized to tableInfo's arity, as
// returned by Table.NewEntry.
func newEntryFor(tableInfo *TableInfo, blockNumber uint64) Entry {
	return Entry{
		status:    StatusNormal,
		num:       blockNumber,
		tableInfo: tableInfo,
		data:      NewCowCell(rowPayload{fields: make([]string, tableInfo.Arity())}),
	}
}

// clone returns an O(1) copy of e: the CowCell payload is shared, not
// duplicated, until one of the two Entry values mutates it.
func (e Entry) clone() Entry {
	out := e
	out.data = e.data.Share()
	return out
}

// Clone returns an independent-looking but structurally-shared copy of e,
// safe to hand to a caller or install in another storage layer.
func (e Entry) Clone() Entry { return e.clone() }

// Status returns the entry's lifecycle state.
func (e Entry) Status() Status { return e.status }

// SetStatus mutates the status and marks the entry dirty. A deleted entry
// still occupies a slot: it is the tombstone.
func (e *Entry) SetStatus(s Status) {
	e.data.MutableGet(cloneRowPayload)
	e.status = s
	e.dirty = true
}

// Valid reports whether the entry is a live, non-rolled-back row.
func (e Entry) Valid() bool {
	return e.status == StatusNormal && !e.rollbacked
}

// Num returns the block number the entry was created or last set at.
func (e Entry) Num() uint64 { return e.num }

// SetNum sets the block number and marks the entry dirty.
func (e *Entry) SetNum(num uint64) {
	e.num = num
	e.dirty = true
}

// Version returns the optimistic-concurrency version counter.
func (e Entry) Version() uint64 { return e.version }

// SetVersion sets the version counter.
func (e *Entry) SetVersion(v uint64) { e.version = v }

// Dirty reports whether this entry was created or mutated in the layer
// that currently holds it, as opposed to merely observed from a parent.
func (e Entry) Dirty() bool { return e.dirty }

// SetDirty overrides the dirty flag directly; used when installing
// fall-through cache entries, which must remain non-dirty.
func (e *Entry) SetDirty(d bool) { e.dirty = d }

// Rollbacked reports whether a rollback has invalidated this entry
// instance.
func (e Entry) Rollbacked() bool { return e.rollbacked }

// SetRollbacked marks the entry as invalidated by a rollback.
func (e *Entry) SetRollbacked(r bool) { e.rollbacked = r }

// CapacityOfHashField returns the deterministic byte count over the
// entry's fields, used as a gas metric and required to be identical
// across backends.
func (e Entry) CapacityOfHashField() int {
	return e.data.Get().capacity
}

// RefCount exposes the CowCell's current sharer count, for tests and
// debugging.
func (e Entry) RefCount() int { return e.data.RefCount() }

// GetFieldByIndex returns the value at position i, bounds-checked against
// the schema arity.
func (e Entry) GetFieldByIndex(i int) (string, error) {
	fields := e.data.Get().fields
	if i < 0 || i >= len(fields) {
		name := ""
		if e.tableInfo != nil {
			name = e.tableInfo.Name()
		}
		return "", newFieldIndexOutOfRange(name, i, len(fields))
	}
	return fields[i], nil
}

// GetField returns the value of the named field.
func (e Entry) GetField(name string) (string, error) {
	if e.tableInfo == nil {
		return "", newSchemaMissing("GetField")
	}
	idx, ok := e.tableInfo.FieldIndex(name)
	if !ok {
		return "", newFieldNotFound(e.tableInfo.Name(), name)
	}
	return e.GetFieldByIndex(idx)
}

// SetFieldByIndex updates the field at position i, adjusting the capacity
// counter by the length delta and marking the entry dirty. Triggers
// uniqueness on the underlying CowCell.
func (e *Entry) SetFieldByIndex(i int, value string) error {
	payload := e.data.MutableGet(cloneRowPayload)
	if i < 0 || i >= len(payload.fields) {
		name := ""
		if e.tableInfo != nil {
			name = e.tableInfo.Name()
		}
		return newFieldIndexOutOfRange(name, i, len(payload.fields))
	}
	delta := len(value) - len(payload.fields[i])
	payload.fields[i] = value
	payload.capacity += delta
	e.dirty = true
	return nil
}

// SetField updates the named field.
func (e *Entry) SetField(name, value string) error {
	if e.tableInfo == nil {
		return newSchemaMissing("SetField")
	}
	idx, ok := e.tableInfo.FieldIndex(name)
	if !ok {
		return newFieldNotFound(e.tableInfo.Name(), name)
	}
	return e.SetFieldByIndex(idx, value)
}

// ImportFields replaces the entire field vector, recomputes capacity, and
// marks the entry dirty.
func (e *Entry) ImportFields(fields []string) {
	payload := e.data.MutableGet(cloneRowPayload)
	owned := make([]string, len(fields))
	cap := 0
	for i, f := range fields {
		owned[i] = f
		cap += len(f)
	}
	payload.fields = owned
	payload.capacity = cap
	e.dirty = true
}

// ExportFields returns the field vector and resets the entry's payload to
// empty, ready for reuse.
func (e *Entry) ExportFields() []string {
	payload := e.data.MutableGet(cloneRowPayload)
	out := payload.fields
	payload.fields = nil
	payload.capacity = 0
	return out
}

// Fields returns a read-only view of the field vector.
func (e Entry) Fields() []string {
	return e.data.Get().fields
}

// TableInfo returns the entry's attached schema, which may be nil.
func (e Entry) TableInfo() *TableInfo { return e.tableInfo }
