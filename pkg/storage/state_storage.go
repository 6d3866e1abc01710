package storage

import (
	"context"
	"log/slog"
	"sync"
)

// Executor runs a unit of work, typically on a goroutine pool. AsyncXxx
// methods on StateStorage submit through it instead of spawning a raw
// goroutine per call when one is configured.
type Executor interface {
	Submit(func())
}

// tableBucket holds one table's schema and the rows a StateStorage holds
// locally for it: the rows created here, written here, or cached here
// from a fall-through read.
type tableBucket struct {
	info *TableInfo
	rows map[string]Entry
}

// StateStorage is the layered engine: local table data, an optional
// parent to fall through to, a reversible change log for savepoints, and
// the switches (check_version) and collaborators (hash_impl, logger,
// executor) that shape its behaviour.
type StateStorage struct {
	mu sync.Mutex

	parent      StorageInterface
	blockNumber uint64
	hashImpl    Hasher
	logger      *slog.Logger
	executor    Executor

	tables       map[string]*tableBucket
	savepoints   []change
	checkVersion bool
	keyCompare   CompareFunc
}

// NewStateStorage builds a StateStorage over an optional parent. Version
// checking defaults to enabled. A nil hashImpl is acceptable as long as
// TableHashes is never called.
func NewStateStorage(parent StorageInterface, blockNumber uint64, hashImpl Hasher) *StateStorage {
	return &StateStorage{
		parent:       parent,
		blockNumber:  blockNumber,
		hashImpl:     hashImpl,
		logger:       slog.Default(),
		tables:       make(map[string]*tableBucket),
		checkVersion: true,
	}
}

// SetCheckVersion toggles optimistic-concurrency checking on SetRow.
func (s *StateStorage) SetCheckVersion(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkVersion = enabled
}

// SetLogger overrides the storage's structured logger.
func (s *StateStorage) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// SetExecutor overrides the executor AsyncXxx methods submit work to.
// A nil executor falls back to one raw goroutine per call.
func (s *StateStorage) SetExecutor(executor Executor) {
	s.executor = executor
}

// SetLocale installs a collation-aware comparator (see LocaleCompare) as
// the default for any Condition passed to GetPrimaryKeys that didn't
// already call WithCompare itself. An empty tag clears the override,
// reverting to raw byte comparison.
func (s *StateStorage) SetLocale(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tag == "" {
		s.keyCompare = nil
		return nil
	}
	cmp, err := LocaleCompare(tag)
	if err != nil {
		return err
	}
	s.keyCompare = cmp
	return nil
}

// BlockNumber returns the block number new writes are stamped with.
func (s *StateStorage) BlockNumber() uint64 { return s.blockNumber }

// OpenTable resolves a table by name: s_tables is always available; any
// other name is resolved by reading its schema descriptor out of
// s_tables, following the parent chain if necessary.
func (s *StateStorage) OpenTable(name string) (*Table, error) {
	s.mu.Lock()
	if IsSysTable(name) {
		bucket := s.ensureSysBucketLocked()
		info := bucket.info
		s.mu.Unlock()
		return &Table{storage: s, info: info, blockNumber: s.blockNumber}, nil
	}

	row, err := s.getRowLocked(SysTableName, name)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, newTableNotFound(name)
	}
	value, ferr := row.GetField(sysTableValueField)
	if ferr != nil {
		return nil, ferr
	}
	info := NewTableInfo(name, decodeFieldList(value))
	return &Table{storage: s, info: info, blockNumber: s.blockNumber}, nil
}

func (s *StateStorage) ensureSysBucketLocked() *tableBucket {
	bucket := s.tables[SysTableName]
	if bucket == nil {
		bucket = &tableBucket{info: newSysTableInfo(), rows: make(map[string]Entry)}
		s.tables[SysTableName] = bucket
	}
	return bucket
}

// GetRow reads a single row by key, falling through to the parent chain
// and caching the result locally (without journalling it) on a miss.
func (s *StateStorage) GetRow(table, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRowLocked(table, key)
}

// getRowLocked performs the GetRow logic; callers must hold s.mu.
func (s *StateStorage) getRowLocked(table, key string) (*Entry, error) {
	if bucket := s.tables[table]; bucket != nil {
		if e, ok := bucket.rows[key]; ok {
			if e.status == StatusDeleted {
				return nil, nil
			}
			out := e.clone()
			return &out, nil
		}
	}

	entry, err := s.parentGetRow(table, key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	cached := entry.Clone()
	cached.SetDirty(false)
	cached.SetRollbacked(false)

	bucket := s.tables[table]
	if bucket == nil {
		bucket = &tableBucket{info: cached.TableInfo(), rows: make(map[string]Entry)}
		s.tables[table] = bucket
	}
	bucket.rows[key] = cached

	out := cached.clone()
	return &out, nil
}

// GetRows reads multiple rows, preserving the order and length of keys;
// a missing key yields a nil *Entry at that position.
func (s *StateStorage) GetRows(table string, keys []string) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(keys))
	for i, k := range keys {
		e, err := s.getRowLocked(table, k)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// GetPrimaryKeys returns the union of local and parent keys satisfying
// cond, minus any key DELETED locally (local always wins), with cond's
// Limit clause applied last.
func (s *StateStorage) GetPrimaryKeys(table string, cond *Condition) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cond == nil {
		cond = NewCondition()
	}
	if !cond.compareSet && s.keyCompare != nil {
		cond.compare = s.keyCompare
	}

	localMatched := make(map[string]bool)
	localDeleted := make(map[string]bool)
	if bucket := s.tables[table]; bucket != nil {
		for k, e := range bucket.rows {
			if !cond.Match(k) {
				continue
			}
			if e.status == StatusDeleted {
				localDeleted[k] = true
				continue
			}
			localMatched[k] = true
		}
	}

	// The parent gets the same predicates without the Limit clause, so the
	// limit is applied once, over the full union.
	parentCond := *cond
	parentCond.limitSet = false
	parentKeys, err := s.parentGetPrimaryKeys(table, &parentCond)
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(localMatched)+len(parentKeys))
	for k := range localMatched {
		result[k] = true
	}
	for _, k := range parentKeys {
		if localDeleted[k] {
			continue
		}
		result[k] = true
	}

	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	return cond.ApplyLimit(keys), nil
}

// CreateTable records a new table's schema in the local s_tables bucket.
// It fails (returns false, nil) if a row for name already exists
// anywhere in the parent chain.
func (s *StateStorage) CreateTable(name string, valueFields []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getRowLocked(SysTableName, name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		s.logger.Debug("CreateTable conflict", "table", name)
		return false, nil
	}

	bucket := s.ensureSysBucketLocked()
	entry := newEntryFor(bucket.info, s.blockNumber)
	if err := entry.SetField(sysTableValueField, encodeFieldList(valueFields)); err != nil {
		return false, err
	}
	entry.dirty = true
	bucket.rows[name] = entry

	s.savepoints = append(s.savepoints, change{kind: changeCreateTable, table: name})
	return true, nil
}

// SetRow installs entry under key in table, version-checking it against
// the predecessor (local or fallen-through) when check_version is
// enabled, and journals the change so it can be rolled back.
func (s *StateStorage) SetRow(table, key string, entry Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.tables[table]
	if bucket == nil {
		info := entry.TableInfo()
		if info == nil {
			return false, newSchemaMissing("SetRow")
		}
		bucket = &tableBucket{info: info, rows: make(map[string]Entry)}
		s.tables[table] = bucket
	}

	var previous *Entry
	if e, ok := bucket.rows[key]; ok {
		ec := e.clone()
		previous = &ec
	} else {
		p, err := s.parentGetRow(table, key)
		if err != nil {
			return false, err
		}
		previous = p
	}

	if s.checkVersion && previous != nil {
		if entry.Version() != previous.Version()+1 {
			verr := &VersionCheckFailError{
				TableName:   table,
				Key:         key,
				Expected:    previous.Version() + 1,
				Got:         entry.Version(),
				Predecessor: true,
			}
			s.logger.Warn("version check failed", "table", table, "key", key, "expected", verr.Expected, "got", verr.Got)
			return false, verr
		}
	}

	entry.dirty = true
	entry.num = s.blockNumber

	var logged *Entry
	if e, ok := bucket.rows[key]; ok {
		ec := e.clone()
		logged = &ec
	}
	bucket.rows[key] = entry
	s.savepoints = append(s.savepoints, change{kind: changeSetRow, table: table, key: key, previous: logged})
	return true, nil
}

type rowResult struct {
	e   *Entry
	err error
}

type keysResult struct {
	keys []string
	err  error
}

// parentGetRow consults the parent chain for table/key, preferring the
// synchronous fast path when the parent is itself a StateStorage.
func (s *StateStorage) parentGetRow(table, key string) (*Entry, error) {
	if s.parent == nil {
		return nil, nil
	}
	if sp, ok := s.parent.(syncStorage); ok {
		return sp.getRowSync(table, key)
	}
	ch := make(chan rowResult, 1)
	s.parent.AsyncGetRow(context.Background(), table, key, func(err error, e *Entry) {
		ch <- rowResult{e: e, err: err}
	})
	r := <-ch
	if r.err != nil {
		s.logger.Error("backend GetRow failed", "table", table, "key", key, "error", r.err)
		return nil, newBackendError("GetRow", r.err)
	}
	return r.e, nil
}

func (s *StateStorage) parentGetPrimaryKeys(table string, cond *Condition) ([]string, error) {
	if s.parent == nil {
		return nil, nil
	}
	if sp, ok := s.parent.(syncStorage); ok {
		return sp.getPrimaryKeysSync(table, cond)
	}
	ch := make(chan keysResult, 1)
	s.parent.AsyncGetPrimaryKeys(context.Background(), table, cond, func(err error, keys []string) {
		ch <- keysResult{keys: keys, err: err}
	})
	r := <-ch
	if r.err != nil {
		s.logger.Error("backend GetPrimaryKeys failed", "table", table, "error", r.err)
		return nil, newBackendError("GetPrimaryKeys", r.err)
	}
	return r.keys, nil
}
