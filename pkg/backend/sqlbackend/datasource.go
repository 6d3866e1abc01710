// Package sqlbackend implements storage.StorageInterface against
// database/sql, supporting MySQL, PostgreSQL, and SQLite through one
// generic row table selected by a driver name in Config.
package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/morebtcg/bcos-framework/pkg/storage"
)

const sysTableValueField = "value"

func sysTableInfo() *storage.TableInfo {
	return storage.NewTableInfo(storage.SysTableName, []string{sysTableValueField})
}

// Driver identifies which database/sql driver backs a DataSource.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Config configures the SQL-backed leaf.
type Config struct {
	Driver Driver
	DSN    string
}

// DataSource is a storage.StorageInterface leaf backed by database/sql.
type DataSource struct {
	cfg Config
	db  *sql.DB

	mu     sync.RWMutex
	tables map[string]*storage.TableInfo

	logger *slog.Logger
}

// New constructs a DataSource; call Connect before use.
func New(cfg Config) *DataSource {
	return &DataSource{cfg: cfg, tables: make(map[string]*storage.TableInfo), logger: slog.Default()}
}

// SetLogger overrides the backend's structured logger.
func (d *DataSource) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	d.logger = logger
}

// Connect opens the database and ensures the backing table exists.
func (d *DataSource) Connect(ctx context.Context) error {
	driverName := string(d.cfg.Driver)
	db, err := sql.Open(driverName, d.cfg.DSN)
	if err != nil {
		d.logger.Error("failed to open database", "driver", driverName, "error", err)
		return fmt.Errorf("failed to open %s database: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		d.logger.Error("failed to connect to database", "driver", driverName, "error", err)
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	d.db = db
	return d.ensureSchema(ctx)
}

// Close releases the underlying *sql.DB.
func (d *DataSource) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DataSource) payloadColumnType() string {
	switch d.cfg.Driver {
	case DriverPostgres:
		return "BYTEA"
	default:
		return "BLOB"
	}
}

func (d *DataSource) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS state_rows (
		table_name VARCHAR(255) NOT NULL,
		row_key VARCHAR(255) NOT NULL,
		status SMALLINT NOT NULL,
		num BIGINT NOT NULL,
		version BIGINT NOT NULL,
		payload %s,
		PRIMARY KEY (table_name, row_key)
	)`, d.payloadColumnType())
	_, err := d.db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("failed to create state_rows table: %w", err)
	}
	return nil
}

func (d *DataSource) placeholder(n int) string {
	if d.cfg.Driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d *DataSource) resolveTableInfo(ctx context.Context, table string) (*storage.TableInfo, error) {
	if storage.IsSysTable(table) {
		return sysTableInfo(), nil
	}

	d.mu.RLock()
	info, ok := d.tables[table]
	d.mu.RUnlock()
	if ok {
		return info, nil
	}

	entry, err := d.getRow(ctx, storage.SysTableName, table)
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
	info = storage.NewTableInfo(table, strings.Split(value, ","))

	d.mu.Lock()
	d.tables[table] = info
	d.mu.Unlock()
	return info, nil
}

func (d *DataSource) tableInfoForRead(ctx context.Context, table string) (*storage.TableInfo, error) {
	if storage.IsSysTable(table) {
		return sysTableInfo(), nil
	}
	return d.resolveTableInfo(ctx, table)
}

func (d *DataSource) getRow(ctx context.Context, table, key string) (*storage.Entry, error) {
	info, err := d.tableInfoForRead(ctx, table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT status, num, version, payload FROM state_rows WHERE table_name = %s AND row_key = %s",
		d.placeholder(1), d.placeholder(2))

	var status uint8
	var num, version uint64
	var payload []byte
	err = d.db.QueryRowContext(ctx, query, table, key).Scan(&status, &num, &version, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	fields, err := decodeFields(payload)
	if err != nil {
		return nil, err
	}
	entry := storage.NewEntry(info, storage.Status(status), num, version, fields)
	return &entry, nil
}

func (d *DataSource) setRow(ctx context.Context, table, key string, entry storage.Entry) error {
	payload := encodeFields(entry.Fields())

	var query string
	switch d.cfg.Driver {
	case DriverPostgres:
		query = `INSERT INTO state_rows (table_name, row_key, status, num, version, payload)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (table_name, row_key) DO UPDATE SET status = $3, num = $4, version = $5, payload = $6`
	case DriverMySQL:
		query = `INSERT INTO state_rows (table_name, row_key, status, num, version, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE status = VALUES(status), num = VALUES(num), version = VALUES(version), payload = VALUES(payload)`
	default:
		query = `INSERT INTO state_rows (table_name, row_key, status, num, version, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (table_name, row_key) DO UPDATE SET status = excluded.status, num = excluded.num, version = excluded.version, payload = excluded.payload`
	}

	_, err := d.db.ExecContext(ctx, query, table, key, uint8(entry.Status()), entry.Num(), entry.Version(), payload)
	return err
}

// AsyncGetRow implements storage.StorageInterface.
func (d *DataSource) AsyncGetRow(ctx context.Context, table, key string, cb func(error, *storage.Entry)) {
	go func() {
		e, err := d.getRow(ctx, table, key)
		if err != nil {
			d.logger.Error("sql GetRow failed", "table", table, "key", key, "error", err)
		}
		cb(err, e)
	}()
}

// AsyncGetRows implements storage.StorageInterface.
func (d *DataSource) AsyncGetRows(ctx context.Context, table string, keys []string, cb func(error, []*storage.Entry)) {
	go func() {
		out := make([]*storage.Entry, len(keys))
		for i, k := range keys {
			e, err := d.getRow(ctx, table, k)
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
func (d *DataSource) AsyncGetPrimaryKeys(ctx context.Context, table string, cond *storage.Condition, cb func(error, []string)) {
	go func() {
		query := fmt.Sprintf("SELECT row_key FROM state_rows WHERE table_name = %s", d.placeholder(1))
		rows, err := d.db.QueryContext(ctx, query, table)
		if err != nil {
			cb(err, nil)
			return
		}
		defer rows.Close()

		var keys []string
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				cb(err, nil)
				return
			}
			if cond == nil || cond.Match(k) {
				keys = append(keys, k)
			}
		}
		if err := rows.Err(); err != nil {
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
func (d *DataSource) AsyncSetRow(ctx context.Context, table, key string, entry storage.Entry, cb func(error, bool)) {
	go func() {
		err := d.setRow(ctx, table, key, entry)
		if err != nil {
			d.logger.Error("sql SetRow failed", "table", table, "key", key, "error", err)
		}
		cb(err, err == nil)
	}()
}

// AsyncCreateTable implements storage.StorageInterface.
func (d *DataSource) AsyncCreateTable(ctx context.Context, name string, valueFields []string, cb func(error, bool)) {
	go func() {
		existing, err := d.getRow(ctx, storage.SysTableName, name)
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
		err = d.setRow(ctx, storage.SysTableName, name, entry)
		if err != nil {
			d.logger.Error("sql CreateTable failed", "table", name, "error", err)
		}
		cb(err, err == nil)
	}()
}

// ParallelTraverse implements storage.StorageInterface. dirtyOnly has no
// meaning for a persistent leaf and is ignored.
func (d *DataSource) ParallelTraverse(ctx context.Context, _ bool, visitor storage.TraverseVisitor) error {
	rows, err := d.db.QueryContext(ctx, "SELECT table_name, row_key, status, num, version, payload FROM state_rows")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var table, key string
		var status uint8
		var num, version uint64
		var payload []byte
		if err := rows.Scan(&table, &key, &status, &num, &version, &payload); err != nil {
			return err
		}
		info, err := d.tableInfoForRead(ctx, table)
		if err != nil {
			return err
		}
		fields, err := decodeFields(payload)
		if err != nil {
			return err
		}
		entry := storage.NewEntry(info, storage.Status(status), num, version, fields)
		if !visitor(table, key, entry) {
			return rows.Err()
		}
	}
	return rows.Err()
}

var _ storage.StorageInterface = (*DataSource)(nil)
