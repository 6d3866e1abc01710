package badgerbackend

import (
	"encoding/json"
	"fmt"

	"github.com/morebtcg/bcos-framework/pkg/storage"
)

// wireEntry is the JSON representation of an Entry persisted to Badger.
type wireEntry struct {
	Status  uint8    `json:"status"`
	Num     uint64   `json:"num"`
	Version uint64   `json:"version"`
	Fields  []string `json:"fields"`
}

// RowCodec encodes and decodes Entry values to and from the JSON form
// stored under each row's Badger key.
type RowCodec struct{}

// NewRowCodec returns a ready-to-use RowCodec.
func NewRowCodec() *RowCodec { return &RowCodec{} }

// Encode serializes an Entry.
func (RowCodec) Encode(e storage.Entry) ([]byte, error) {
	w := wireEntry{
		Status:  uint8(e.Status()),
		Num:     e.Num(),
		Version: e.Version(),
		Fields:  e.Fields(),
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	return data, nil
}

// Decode reconstructs an Entry bound to tableInfo from encoded bytes.
func (RowCodec) Decode(data []byte, tableInfo *storage.TableInfo) (storage.Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return storage.Entry{}, fmt.Errorf("failed to decode row: %w", err)
	}
	return storage.NewEntry(tableInfo, storage.Status(w.Status), w.Num, w.Version, w.Fields), nil
}

// TableInfoCodec encodes and decodes a table's field list, the same
// comma-separated form s_tables stores it in.
type TableInfoCodec struct{}

// NewTableInfoCodec returns a ready-to-use TableInfoCodec.
func NewTableInfoCodec() *TableInfoCodec { return &TableInfoCodec{} }

// Encode serializes a field list.
func (TableInfoCodec) Encode(fields []string) ([]byte, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode table info: %w", err)
	}
	return data, nil
}

// Decode parses a field list.
func (TableInfoCodec) Decode(data []byte) ([]string, error) {
	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode table info: %w", err)
	}
	return fields, nil
}
