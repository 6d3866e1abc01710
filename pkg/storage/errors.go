package storage

import "fmt"

// TableNotFoundError is returned when a table cannot be resolved anywhere
// in the parent chain.
type TableNotFoundError struct {
	TableName string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found", e.TableName)
}

// FieldNotFoundError is returned when a field name is not part of a
// table's schema.
type FieldNotFoundError struct {
	TableName string
	Field     string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found in table %q", e.Field, e.TableName)
}

// FieldIndexOutOfRangeError is returned when a field is addressed by a
// positional index outside the schema's arity.
type FieldIndexOutOfRangeError struct {
	TableName string
	Index     int
	Arity     int
}

func (e *FieldIndexOutOfRangeError) Error() string {
	return fmt.Sprintf("field index %d out of range [0,%d) for table %q", e.Index, e.Arity, e.TableName)
}

// SchemaMissingError is returned when an Entry has no attached TableInfo,
// so field lookups by name cannot be resolved.
type SchemaMissingError struct {
	Op string
}

func (e *SchemaMissingError) Error() string {
	return fmt.Sprintf("entry has no schema attached: %s", e.Op)
}

// VersionCheckFailError is returned by SetRow when the written entry's
// version does not immediately follow the predecessor's version while
// version checking is enabled.
type VersionCheckFailError struct {
	TableName   string
	Key         string
	Expected    uint64
	Got         uint64
	Predecessor bool
}

func (e *VersionCheckFailError) Error() string {
	if !e.Predecessor {
		return fmt.Sprintf("version check failed for %s/%s: no predecessor accepts any version, got %d from a stale view", e.TableName, e.Key, e.Got)
	}
	return fmt.Sprintf("version check failed for %s/%s: expected version %d, got %d", e.TableName, e.Key, e.Expected, e.Got)
}

// BackendError wraps a failure reported by a parent StorageInterface leaf.
type BackendError struct {
	Op    string
	Inner error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error during %s: %v", e.Op, e.Inner)
}

func (e *BackendError) Unwrap() error {
	return e.Inner
}

func newTableNotFound(name string) error            { return &TableNotFoundError{TableName: name} }
func newFieldNotFound(table, field string) error    { return &FieldNotFoundError{TableName: table, Field: field} }
func newSchemaMissing(op string) error              { return &SchemaMissingError{Op: op} }
func newBackendError(op string, inner error) error  { return &BackendError{Op: op, Inner: inner} }
func newFieldIndexOutOfRange(table string, idx, arity int) error {
	return &FieldIndexOutOfRangeError{TableName: table, Index: idx, Arity: arity}
}
