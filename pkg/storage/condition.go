package storage

import (
	"sort"
	"strings"
)

// CompareFunc orders two keys, returning a negative, zero, or positive
// result like strings.Compare. The default is raw byte comparison; the
// hook lets a caller plug in a locale-aware ordering (see
// pkg/storage/locale.go) for the range predicates.
type CompareFunc func(a, b string) int

func defaultCompare(a, b string) int { return strings.Compare(a, b) }

type predicateKind int

const (
	predEQ predicateKind = iota
	predNE
	predGT
	predGE
	predLT
	predLE
	predStartsWith
	predEndsWith
	predContains
)

type predicate struct {
	kind predicateKind
	arg  string
}

// Condition is a conjunctive predicate over primary keys, used by
// GetPrimaryKeys. Predicates combine with logical AND; Limit is applied
// after the full key set (local union parent) has been computed.
type Condition struct {
	predicates []predicate
	limitSet   bool
	offset     int
	count      int
	compare    CompareFunc
	compareSet bool
}

// NewCondition returns an empty Condition that matches every key.
func NewCondition() *Condition {
	return &Condition{compare: defaultCompare}
}

// WithCompare overrides the comparator used for the range predicates
// (GT/GE/LT/LE). Default is raw byte comparison. A Condition that calls
// WithCompare keeps that comparator even if its owning StateStorage has
// a locale-aware default installed via SetLocale.
func (c *Condition) WithCompare(cmp CompareFunc) *Condition {
	c.compare = cmp
	c.compareSet = true
	return c
}

func (c *Condition) add(kind predicateKind, arg string) *Condition {
	c.predicates = append(c.predicates, predicate{kind: kind, arg: arg})
	return c
}

// EQ requires the key to equal k.
func (c *Condition) EQ(k string) *Condition { return c.add(predEQ, k) }

// NE requires the key to differ from k.
func (c *Condition) NE(k string) *Condition { return c.add(predNE, k) }

// GT requires the key to compare greater than k.
func (c *Condition) GT(k string) *Condition { return c.add(predGT, k) }

// GE requires the key to compare greater than or equal to k.
func (c *Condition) GE(k string) *Condition { return c.add(predGE, k) }

// LT requires the key to compare less than k.
func (c *Condition) LT(k string) *Condition { return c.add(predLT, k) }

// LE requires the key to compare less than or equal to k.
func (c *Condition) LE(k string) *Condition { return c.add(predLE, k) }

// StartsWith requires the key to have prefix p.
func (c *Condition) StartsWith(p string) *Condition { return c.add(predStartsWith, p) }

// EndsWith requires the key to have suffix s.
func (c *Condition) EndsWith(s string) *Condition { return c.add(predEndsWith, s) }

// Contains requires the key to contain substring s.
func (c *Condition) Contains(s string) *Condition { return c.add(predContains, s) }

// Limit restricts the final (post-union) result to count keys starting at
// offset, counted in lexicographic key order (see ApplyLimit).
func (c *Condition) Limit(offset, count int) *Condition {
	c.limitSet = true
	c.offset = offset
	c.count = count
	return c
}

// Match reports whether key satisfies every predicate in the condition.
// Limit is not evaluated here; it is applied by the caller once the full
// key set is known.
func (c *Condition) Match(key string) bool {
	cmp := c.compare
	if cmp == nil {
		cmp = defaultCompare
	}
	for _, p := range c.predicates {
		switch p.kind {
		case predEQ:
			if key != p.arg {
				return false
			}
		case predNE:
			if key == p.arg {
				return false
			}
		case predGT:
			if cmp(key, p.arg) <= 0 {
				return false
			}
		case predGE:
			if cmp(key, p.arg) < 0 {
				return false
			}
		case predLT:
			if cmp(key, p.arg) >= 0 {
				return false
			}
		case predLE:
			if cmp(key, p.arg) > 0 {
				return false
			}
		case predStartsWith:
			if !strings.HasPrefix(key, p.arg) {
				return false
			}
		case predEndsWith:
			if !strings.HasSuffix(key, p.arg) {
				return false
			}
		case predContains:
			if !strings.Contains(key, p.arg) {
				return false
			}
		}
	}
	return true
}

// ApplyLimit sorts keys lexicographically in place, then applies the
// condition's Limit clause (if any), returning the resulting slice.
func (c *Condition) ApplyLimit(keys []string) []string {
	sort.Strings(keys)
	if !c.limitSet {
		return keys
	}
	if c.offset >= len(keys) {
		return nil
	}
	end := c.offset + c.count
	if c.count < 0 || end > len(keys) {
		end = len(keys)
	}
	return keys[c.offset:end]
}
