package storage

import (
	"context"
	"sync"
)

type rowSnapshot struct {
	table string
	key   string
	entry Entry
}

// ParallelTraverse invokes visitor for every row in every local table
// (optionally restricted to dirty rows), returning as soon as the
// visitor returns false or every row has been visited. Work fans out one
// goroutine per table; the call itself assumes no concurrent writer on
// this storage, per the package's concurrency contract.
func (s *StateStorage) ParallelTraverse(_ context.Context, dirtyOnly bool, visitor TraverseVisitor) error {
	s.mu.Lock()
	perTable := make(map[string][]rowSnapshot, len(s.tables))
	for name, bucket := range s.tables {
		rows := make([]rowSnapshot, 0, len(bucket.rows))
		for key, entry := range bucket.rows {
			if dirtyOnly && !entry.dirty {
				continue
			}
			rows = append(rows, rowSnapshot{table: name, key: key, entry: entry})
		}
		if len(rows) > 0 {
			perTable[name] = rows
		}
	}
	s.mu.Unlock()

	var (
		wg      sync.WaitGroup
		stopMu  sync.Mutex
		stopped bool
	)

	for _, rows := range perTable {
		wg.Add(1)
		go func(rows []rowSnapshot) {
			defer wg.Done()
			for _, r := range rows {
				stopMu.Lock()
				halt := stopped
				stopMu.Unlock()
				if halt {
					return
				}
				if !visitor(r.table, r.key, r.entry) {
					stopMu.Lock()
					stopped = true
					stopMu.Unlock()
					return
				}
			}
		}(rows)
	}
	wg.Wait()
	return nil
}
