package storage

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// TableHash pairs a table name with its computed digest.
type TableHash struct {
	Table  string
	Digest [32]byte
}

// TableHashes computes one digest per local table, in lexicographic table
// order, over its dirty rows in lexicographic key order. Unchanged
// fall-through rows never contribute: hashing them is the layer that
// actually wrote them's responsibility.
func (s *StateStorage) TableHashes() ([]TableHash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hashImpl == nil {
		return nil, newSchemaMissing("TableHashes: no hash implementation configured")
	}

	tableNames := make([]string, 0, len(s.tables))
	for name := range s.tables {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	var out []TableHash
	for _, name := range tableNames {
		bucket := s.tables[name]
		keys := make([]string, 0, len(bucket.rows))
		for k, e := range bucket.rows {
			if e.dirty {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			continue
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		for _, k := range keys {
			e := bucket.rows[k]
			buf.WriteString(k)
			buf.WriteByte(byte(e.status))

			var numBuf [8]byte
			binary.LittleEndian.PutUint64(numBuf[:], e.num)
			buf.Write(numBuf[:])

			for _, f := range e.Fields() {
				var lenBuf [4]byte
				binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(f)))
				buf.Write(lenBuf[:])
				buf.WriteString(f)
			}
		}

		out = append(out, TableHash{Table: name, Digest: s.hashImpl.Hash(buf.Bytes())})
	}
	return out, nil
}
