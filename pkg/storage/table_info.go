package storage

import "strings"

// SysTableName is the bootstrap table every StateStorage carries, recording
// the schemas of all tables created locally.
const SysTableName = "s_tables"

// sysTableValueField is the single value column of s_tables: a
// comma-separated field list for the table the row describes.
const sysTableValueField = "value"

// TableInfo is an immutable schema descriptor: a table name plus an
// ordered list of field names and the field -> position index built from
// it. Once constructed it is never mutated; sharing a *TableInfo across
// goroutines and storage layers is always safe.
type TableInfo struct {
	name       string
	fields     []string
	fieldIndex map[string]int
}

// NewTableInfo builds a TableInfo from a table name and an ordered list of
// field names. Field names must be non-empty and unique.
func NewTableInfo(name string, fields []string) *TableInfo {
	owned := make([]string, len(fields))
	copy(owned, fields)
	idx := make(map[string]int, len(owned))
	for i, f := range owned {
		idx[f] = i
	}
	return &TableInfo{name: name, fields: owned, fieldIndex: idx}
}

// newSysTableInfo returns the fixed schema of s_tables.
func newSysTableInfo() *TableInfo {
	return NewTableInfo(SysTableName, []string{sysTableValueField})
}

// Name returns the table's identifier.
func (t *TableInfo) Name() string { return t.name }

// Fields returns the ordered field names. Callers must not mutate the
// returned slice.
func (t *TableInfo) Fields() []string { return t.fields }

// Arity returns the number of fields in the schema.
func (t *TableInfo) Arity() int { return len(t.fields) }

// FieldIndex returns the position of field in the schema and whether it
// exists.
func (t *TableInfo) FieldIndex(field string) (int, bool) {
	i, ok := t.fieldIndex[field]
	return i, ok
}

// encodeFieldList renders the field list as the comma-separated value
// stored in s_tables.
func encodeFieldList(fields []string) string {
	return strings.Join(fields, ",")
}

// decodeFieldList parses the comma-separated value field of an s_tables
// row back into a field list. An empty string decodes to zero fields,
// not to the single empty field name strings.Split would return.
func decodeFieldList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
