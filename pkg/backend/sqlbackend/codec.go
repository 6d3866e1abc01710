package sqlbackend

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// encodeFields reuses the length-prefixed field wire format pkg/storage
// uses for hashing (§4.6 of the state-storage spec) as the on-disk row
// payload: one byte count, no separate purpose-built format to maintain.
func encodeFields(fields []string) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(f)))
		buf.Write(lenBuf[:])
		buf.WriteString(f)
	}
	return buf.Bytes()
}

func decodeFields(data []byte) ([]string, error) {
	var fields []string
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("truncated field payload")
		}
		n := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, fmt.Errorf("truncated field payload")
		}
		fields = append(fields, string(data[:n]))
		data = data[n:]
	}
	return fields, nil
}
