// Package badgerbackend implements storage.StorageInterface against
// github.com/dgraph-io/badger/v4, so a StateStorage chain can bottom out
// on an actual persistent KV store instead of terminating at nil.
package badgerbackend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/morebtcg/bcos-framework/pkg/storage"
)

const sysTableValueField = "value"

func sysTableInfo() *storage.TableInfo {
	return storage.NewTableInfo(storage.SysTableName, []string{sysTableValueField})
}

// Config configures the Badger-backed leaf.
type Config struct {
	DataDir  string
	InMemory bool
}

// DefaultConfig returns an in-memory Badger configuration, useful for
// tests and local development.
func DefaultConfig() Config {
	return Config{InMemory: true}
}

// DataSource is a storage.StorageInterface leaf backed by Badger.
type DataSource struct {
	cfg Config
	db  *badger.DB

	mu     sync.RWMutex
	tables map[string]*storage.TableInfo

	rowCodec   *RowCodec
	infoCodec  *TableInfoCodec
	logger     *slog.Logger
}

// New constructs a DataSource; call Connect before use.
func New(cfg Config) *DataSource {
	return &DataSource{
		cfg:       cfg,
		tables:    make(map[string]*storage.TableInfo),
		rowCodec:  NewRowCodec(),
		infoCodec: NewTableInfoCodec(),
		logger:    slog.Default(),
	}
}

// SetLogger overrides the backend's structured logger.
func (d *DataSource) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	d.logger = logger
}

// Connect opens the underlying Badger database.
func (d *DataSource) Connect() error {
	var opts badger.Options
	if d.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(d.cfg.DataDir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}
	d.db = db
	return nil
}

// Close releases the underlying Badger database.
func (d *DataSource) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func rowKey(table, key string) []byte {
	return []byte(table + "\x00" + key)
}

func rowPrefix(table string) []byte {
	return []byte(table + "\x00")
}

// resolveTableInfo returns the schema for table, reading it out of the
// persisted s_tables row on first use.
func (d *DataSource) resolveTableInfo(table string) (*storage.TableInfo, error) {
	if storage.IsSysTable(table) {
		return sysTableInfo(), nil
	}

	d.mu.RLock()
	info, ok := d.tables[table]
	d.mu.RUnlock()
	if ok {
		return info, nil
	}

	entry, err := d.getRow(storage.SysTableName, table)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &storage.TableNotFoundError{TableName: table}
	}
	value, ferr := entry.GetField(sysTableValueField)
	if ferr != nil {
		return nil, ferr
	}
	fields := strings.Split(value, ",")
	info = storage.NewTableInfo(table, fields)

	d.mu.Lock()
	d.tables[table] = info
	d.mu.Unlock()
	return info, nil
}

func (d *DataSource) getRow(table, key string) (*storage.Entry, error) {
	info, err := d.tableInfoForRead(table)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(rowKey(table, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	entry, err := d.rowCodec.Decode(data, info)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// tableInfoForRead resolves a table's schema without the chicken-and-egg
// problem of resolveTableInfo calling getRow calling resolveTableInfo for
// the s_tables table itself.
func (d *DataSource) tableInfoForRead(table string) (*storage.TableInfo, error) {
	if storage.IsSysTable(table) {
		return sysTableInfo(), nil
	}
	return d.resolveTableInfo(table)
}

// AsyncGetRow implements storage.StorageInterface.
func (d *DataSource) AsyncGetRow(_ context.Context, table, key string, cb func(error, *storage.Entry)) {
	go func() {
		e, err := d.getRow(table, key)
		if err != nil {
			d.logger.Error("badger GetRow failed", "table", table, "key", key, "error", err)
		}
		cb(err, e)
	}()
}

// AsyncGetRows implements storage.StorageInterface.
func (d *DataSource) AsyncGetRows(_ context.Context, table string, keys []string, cb func(error, []*storage.Entry)) {
	go func() {
		out := make([]*storage.Entry, len(keys))
		for i, k := range keys {
			e, err := d.getRow(table, k)
			if err != nil {
				cb(err, nil)
				return
			}
			out[i] = e
		}
		cb(nil, out)
	}()
}

// AsyncGetPrimaryKeys implements storage.StorageInterface.
func (d *DataSource) AsyncGetPrimaryKeys(_ context.Context, table string, cond *storage.Condition, cb func(error, []string)) {
	go func() {
		var keys []string
		err := d.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			prefix := rowPrefix(table)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				full := string(it.Item().Key())
				key := strings.TrimPrefix(full, string(prefix))
				if cond == nil || cond.Match(key) {
					keys = append(keys, key)
				}
			}
			return nil
		})
		if err != nil {
			cb(err, nil)
			return
		}
		if cond != nil {
			keys = cond.ApplyLimit(keys)
		}
		cb(nil, keys)
	}()
}

// AsyncSetRow implements storage.StorageInterface.
func (d *DataSource) AsyncSetRow(_ context.Context, table, key string, entry storage.Entry, cb func(error, bool)) {
	go func() {
		data, err := d.rowCodec.Encode(entry)
		if err != nil {
			cb(err, false)
			return
		}
		err = d.db.Update(func(txn *badger.Txn) error {
			return txn.Set(rowKey(table, key), data)
		})
		if err != nil {
			d.logger.Error("badger SetRow failed", "table", table, "key", key, "error", err)
		}
		cb(err, err == nil)
	}()
}

// AsyncCreateTable implements storage.StorageInterface.
func (d *DataSource) AsyncCreateTable(ctx context.Context, name string, valueFields []string, cb func(error, bool)) {
	go func() {
		existing, err := d.getRow(storage.SysTableName, name)
		if err != nil {
			cb(err, false)
			return
		}
		if existing != nil {
			d.logger.Debug("CreateTable conflict", "table", name)
			cb(nil, false)
			return
		}
		entry := storage.NewEntry(sysTableInfo(), storage.StatusNormal, 0, 1, []string{strings.Join(valueFields, ",")})
		data, err := d.rowCodec.Encode(entry)
		if err != nil {
			cb(err, false)
			return
		}
		err = d.db.Update(func(txn *badger.Txn) error {
			return txn.Set(rowKey(storage.SysTableName, name), data)
		})
		if err != nil {
			d.logger.Error("badger CreateTable failed", "table", name, "error", err)
		}
		cb(err, err == nil)
	}()
}

// ParallelTraverse implements storage.StorageInterface by iterating the
// whole keyspace once; dirtyOnly has no meaning for a persistent leaf
// (everything it holds was committed, so nothing is "not dirty") and is
// ignored.
func (d *DataSource) ParallelTraverse(_ context.Context, _ bool, visitor storage.TraverseVisitor) error {
	return d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			full := string(item.Key())
			sep := strings.IndexByte(full, 0)
			if sep < 0 {
				continue
			}
			table, key := full[:sep], full[sep+1:]

			info, err := d.tableInfoForRead(table)
			if err != nil {
				return err
			}

			var cont bool
			err = item.Value(func(val []byte) error {
				entry, derr := d.rowCodec.Decode(val, info)
				if derr != nil {
					return derr
				}
				cont = visitor(table, key, entry)
				return nil
			})
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

var _ storage.StorageInterface = (*DataSource)(nil)
