package storage

import "context"

// TraverseVisitor is invoked for every row visited by ParallelTraverse. It
// returns true to continue the traversal and false to stop it early.
type TraverseVisitor func(table, key string, entry Entry) bool

// Hasher is the injected cryptographic hash primitive: pure and
// deterministic, 32-byte output assumed for state roots but not enforced
// by this package.
type Hasher interface {
	Hash(data []byte) [32]byte
}

// StorageInterface is the minimal surface a parent leaf (another
// StateStorage, a persistent backend, or nothing) must provide. All
// methods are asynchronous; a StateStorage whose parent also happens to
// implement syncStorage is given a synchronous fast path instead of
// blocking on the callback (see sync_fastpath.go).
type StorageInterface interface {
	AsyncGetRow(ctx context.Context, table, key string, cb func(error, *Entry))
	AsyncGetRows(ctx context.Context, table string, keys []string, cb func(error, []*Entry))
	AsyncGetPrimaryKeys(ctx context.Context, table string, cond *Condition, cb func(error, []string))
	AsyncSetRow(ctx context.Context, table, key string, entry Entry, cb func(error, bool))
	AsyncCreateTable(ctx context.Context, name string, valueFields []string, cb func(error, bool))
	ParallelTraverse(ctx context.Context, dirtyOnly bool, visitor TraverseVisitor) error
}

// syncStorage is an optional interface a StorageInterface may additionally
// implement to offer a blocking fast path, avoiding an async round trip
// when the parent is itself a StateStorage in the same process. This
// mirrors the io.ReaderFrom idiom: callers type-assert for it and fall
// back to the async contract when it is absent.
type syncStorage interface {
	getRowSync(table, key string) (*Entry, error)
	getRowsSync(table string, keys []string) ([]*Entry, error)
	getPrimaryKeysSync(table string, cond *Condition) ([]string, error)
}
