package hashimpl

import "github.com/cespare/xxhash/v2"

// XXHash hashes with xxhash, a fast non-cryptographic digest. It trades
// collision resistance for speed, appropriate for test fixtures and
// local development where the 32-byte state-root property isn't load
// bearing; the first 8 bytes carry the digest, the rest are zero.
type XXHash struct{}

// Hash returns a 32-byte value whose first 8 bytes are the xxhash digest
// of data, in big-endian order, with the remaining 24 bytes zeroed.
func (XXHash) Hash(data []byte) [32]byte {
	var out [32]byte
	sum := xxhash.Sum64(data)
	for i := 0; i < 8; i++ {
		out[7-i] = byte(sum)
		sum >>= 8
	}
	return out
}
