// Package storage implements a layered, in-memory, transactional key/value
// store organised as named tables of fixed-schema rows. Each StateStorage
// forwards reads it cannot satisfy locally to a parent, accumulates writes
// only in its own layer, and exposes savepoint/rollback over that layer's
// change log.
package storage
