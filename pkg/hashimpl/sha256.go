// Package hashimpl provides concrete implementations of the pure,
// deterministic hash collaborator that pkg/storage injects for computing
// per-table digests.
package hashimpl

import "crypto/sha256"

// SHA256 hashes with crypto/sha256. No library in the retrieved stack
// targets a generic content-hash primitive, so this one implementation
// leans on the standard library by necessity rather than by default.
type SHA256 struct{}

// Hash returns the SHA-256 digest of data.
func (SHA256) Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}
