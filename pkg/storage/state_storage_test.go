package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustOpenOrCreateTable(t *testing.T, s *StateStorage, name string, fields []string) *Table {
	t.Helper()
	ok, err := s.CreateTable(name, fields)
	require.NoError(t, err)
	require.True(t, ok, "CreateTable(%s) should succeed the first time", name)
	tbl, err := s.OpenTable(name)
	require.NoError(t, err)
	return tbl
}

// Scenario 1: create/read/write baseline.
func TestStateStorageCreateReadWriteBaseline(t *testing.T) {
	s := NewStateStorage(nil, 1, nil)
	tbl := mustOpenOrCreateTable(t, s, "t_account", []string{"balance"})

	entry := tbl.NewEntry()
	require.NoError(t, entry.SetField("balance", "100"))
	entry.SetVersion(0)
	ok, err := tbl.SetRow("alice", entry)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := tbl.GetRow("alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	val, err := got.GetField("balance")
	require.NoError(t, err)
	require.Equal(t, "100", val)
	require.True(t, got.Dirty())

	missing, err := tbl.GetRow("bob")
	require.NoError(t, err)
	require.Nil(t, missing)
}

// Scenario 2: rollback tombstone.
func TestStateStorageRollbackTombstone(t *testing.T) {
	s := NewStateStorage(nil, 1, nil)
	tbl := mustOpenOrCreateTable(t, s, "t_account", []string{"balance"})

	entry := tbl.NewEntry()
	require.NoError(t, entry.SetField("balance", "100"))
	entry.SetVersion(0)
	ok, err := tbl.SetRow("alice", entry)
	require.NoError(t, err)
	require.True(t, ok)

	sp := s.Savepoint()

	del := tbl.NewDeletedEntry()
	del.SetVersion(1)
	ok, err = tbl.SetRow("alice", del)
	require.NoError(t, err)
	require.True(t, ok)

	gone, err := tbl.GetRow("alice")
	require.NoError(t, err)
	require.Nil(t, gone, "alice should read back as deleted before rollback")

	s.Rollback(sp)

	restored, err := tbl.GetRow("alice")
	require.NoError(t, err)
	require.NotNil(t, restored)
	val, err := restored.GetField("balance")
	require.NoError(t, err)
	require.Equal(t, "100", val)

	// Rolling back to the same id twice is a no-op.
	s.Rollback(sp)
	again, err := tbl.GetRow("alice")
	require.NoError(t, err)
	require.NotNil(t, again)
}

// Scenario 3: nested savepoints.
func TestStateStorageNestedSavepoints(t *testing.T) {
	s := NewStateStorage(nil, 1, nil)
	tbl := mustOpenOrCreateTable(t, s, "t_kv", []string{"v"})

	e1 := tbl.NewEntry()
	require.NoError(t, e1.SetField("v", "1"))
	e1.SetVersion(0)
	_, err := tbl.SetRow("k1", e1)
	require.NoError(t, err)

	sp1 := s.Savepoint()

	e2 := tbl.NewEntry()
	require.NoError(t, e2.SetField("v", "2"))
	e2.SetVersion(0)
	_, err = tbl.SetRow("k2", e2)
	require.NoError(t, err)

	sp2 := s.Savepoint()

	del1 := tbl.NewDeletedEntry()
	del1.SetVersion(1)
	_, err = tbl.SetRow("k1", del1)
	require.NoError(t, err)

	e3 := tbl.NewEntry()
	require.NoError(t, e3.SetField("v", "3"))
	e3.SetVersion(0)
	_, err = tbl.SetRow("k3", e3)
	require.NoError(t, err)

	sp3 := s.Savepoint()

	// Rollback only the sp3 step: nothing happened between sp3 and now, so
	// this is currently a no-op.
	s.Rollback(sp3)
	v3, err := tbl.GetRow("k3")
	require.NoError(t, err)
	require.NotNil(t, v3)

	// Rollback to sp2: undoes the k1 delete and the k3 insert.
	s.Rollback(sp2)
	k1, err := tbl.GetRow("k1")
	require.NoError(t, err)
	require.NotNil(t, k1, "k1 delete should be undone")
	k3, err := tbl.GetRow("k3")
	require.NoError(t, err)
	require.Nil(t, k3, "k3 insert should be undone")
	k2, err := tbl.GetRow("k2")
	require.NoError(t, err)
	require.NotNil(t, k2, "k2 insert happened before sp2 and must survive")

	// Rollback to sp1: undoes the k2 insert.
	s.Rollback(sp1)
	k2, err = tbl.GetRow("k2")
	require.NoError(t, err)
	require.Nil(t, k2, "k2 insert should be undone")
	k1, err = tbl.GetRow("k1")
	require.NoError(t, err)
	require.NotNil(t, k1, "k1's original write happened before sp1 and must survive")
}

// Scenario 4: a 20-deep layer chain with one seed row buried at the
// bottom, topped by a layer that creates 10 tables and writes 100 rows
// each. ParallelTraverse(dirty_only=true) on the top layer must report
// exactly its own fresh writes: 10*100 rows plus the 10 CreateTable
// records in s_tables, none of the 19 pass-through ancestors' state.
func TestStateStorageLayeredFallThrough(t *testing.T) {
	const emptyLayers = 19
	const tableCount = 10
	const rowsPerTable = 100
	const midLayerIndex = 9 // the layer that introduces t_mid, 0-indexed

	seedTable := "t_seed"
	var chain StorageInterface
	bottom := NewStateStorage(nil, 0, nil)
	ok, err := bottom.CreateTable(seedTable, []string{"v"})
	require.NoError(t, err)
	require.True(t, ok)
	seedTbl, err := bottom.OpenTable(seedTable)
	require.NoError(t, err)
	seed := seedTbl.NewEntry()
	require.NoError(t, seed.SetField("v", "buried"))
	seed.SetVersion(0)
	ok, err = seedTbl.SetRow("seed_key", seed)
	require.NoError(t, err)
	require.True(t, ok)
	chain = bottom

	layers := make([]*StateStorage, emptyLayers)
	layers[0] = bottom
	var midLayer *StateStorage
	for layer := 1; layer < emptyLayers; layer++ {
		s := NewStateStorage(chain, uint64(layer), nil)
		layers[layer] = s
		chain = s
		if layer == midLayerIndex {
			midLayer = s
			ok, err := midLayer.CreateTable("t_mid", []string{"v"})
			require.NoError(t, err)
			require.True(t, ok)
		}
	}
	require.NotNil(t, midLayer)

	// A layer built before t_mid existed must not see it.
	ancestor := layers[midLayerIndex-1]
	_, err = ancestor.OpenTable("t_mid")
	require.Error(t, err, "an ancestor layer predating t_mid's creation must not resolve it")
	var notFound *TableNotFoundError
	require.ErrorAs(t, err, &notFound)

	// A layer built after t_mid, falling through midLayer, must see it.
	descendant := layers[midLayerIndex+1]
	_, err = descendant.OpenTable("t_mid")
	require.NoError(t, err, "a descendant layer must resolve t_mid via fall-through")

	top := NewStateStorage(chain, uint64(emptyLayers), nil)
	tableNames := make([]string, tableCount)
	for i := 0; i < tableCount; i++ {
		name := tableNameFor(i)
		tableNames[i] = name
		ok, err := top.CreateTable(name, []string{"v"})
		require.NoError(t, err)
		require.True(t, ok)
		tbl, err := top.OpenTable(name)
		require.NoError(t, err)
		for r := 0; r < rowsPerTable; r++ {
			e := tbl.NewEntry()
			require.NoError(t, e.SetField("v", rowKeyFor(i, r)))
			e.SetVersion(0)
			ok, err := tbl.SetRow(rowKeyFor(i, r), e)
			require.NoError(t, err)
			require.True(t, ok)
		}
	}

	// The top layer, many hops above midLayer, must still resolve t_mid.
	_, err = top.OpenTable("t_mid")
	require.NoError(t, err, "the top layer must resolve t_mid through the full chain")

	// The visitor runs on one goroutine per table, so the count is atomic.
	var visited atomic.Int64
	err = top.ParallelTraverse(context.Background(), true, func(table, key string, entry Entry) bool {
		visited.Add(1)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, int64(tableCount*rowsPerTable+tableCount), visited.Load())

	// A read on the top layer for the seed row buried at the bottom must
	// fall all the way through the 20-deep chain.
	seedView, err := top.OpenTable(seedTable)
	require.NoError(t, err)
	row, err := seedView.GetRow("seed_key")
	require.NoError(t, err)
	require.NotNil(t, row)
	val, err := row.GetField("v")
	require.NoError(t, err)
	require.Equal(t, "buried", val)
}

func tableNameFor(i int) string {
	return fmt.Sprintf("t_layer_%02d", i)
}

func rowKeyFor(layer, row int) string {
	return fmt.Sprintf("k_%02d_%03d", layer, row)
}

// Scenario 5: version check can be toggled off.
func TestStateStorageVersionCheckToggle(t *testing.T) {
	s := NewStateStorage(nil, 1, nil)
	tbl := mustOpenOrCreateTable(t, s, "t_account", []string{"balance"})

	e1 := tbl.NewEntry()
	require.NoError(t, e1.SetField("balance", "100"))
	e1.SetVersion(0)
	ok, err := tbl.SetRow("alice", e1)
	require.NoError(t, err)
	require.True(t, ok)

	badVersion := tbl.NewEntry()
	require.NoError(t, badVersion.SetField("balance", "200"))
	badVersion.SetVersion(5)
	_, err = tbl.SetRow("alice", badVersion)
	require.Error(t, err)
	var verr *VersionCheckFailError
	require.ErrorAs(t, err, &verr)

	s.SetCheckVersion(false)
	_, err = tbl.SetRow("alice", badVersion)
	require.NoError(t, err)

	row, err := tbl.GetRow("alice")
	require.NoError(t, err)
	val, err := row.GetField("balance")
	require.NoError(t, err)
	require.Equal(t, "200", val)
}

// Scenario 6: GetRows across a parent/child layering boundary.
func TestStateStorageGetRowsCrossLayer(t *testing.T) {
	parent := NewStateStorage(nil, 1, nil)
	ptbl := mustOpenOrCreateTable(t, parent, "t_kv", []string{"v"})

	keys := make([]string, 100)
	for i := 0; i < 100; i++ {
		key := rowKeyFor(0, i)
		keys[i] = key
		e := ptbl.NewEntry()
		require.NoError(t, e.SetField("v", "parent"))
		e.SetVersion(0)
		ok, err := ptbl.SetRow(key, e)
		require.NoError(t, err)
		require.True(t, ok)
	}

	child := NewStateStorage(parent, 2, nil)
	ctbl, err := child.OpenTable("t_kv")
	require.NoError(t, err)

	freshKeys := make([]string, 10)
	for i := 0; i < 10; i++ {
		key := "fresh_" + rowKeyFor(1, i)
		freshKeys[i] = key
		e := ctbl.NewEntry()
		require.NoError(t, e.SetField("v", "child"))
		e.SetVersion(0)
		ok, err := ctbl.SetRow(key, e)
		require.NoError(t, err)
		require.True(t, ok)
	}

	fallenKeys := keys[:20]
	queryKeys := append(append([]string{}, freshKeys...), fallenKeys...)

	rows, err := ctbl.GetRows(queryKeys)
	require.NoError(t, err)
	require.Len(t, rows, len(queryKeys))

	for i, key := range freshKeys {
		row := rows[i]
		require.NotNil(t, row, "fresh key %s should resolve", key)
		require.True(t, row.Dirty(), "fresh child write must be dirty")
		require.Equal(t, uint64(2), row.Num())
	}
	for i, key := range fallenKeys {
		row := rows[len(freshKeys)+i]
		require.NotNil(t, row, "fallen-through key %s should resolve", key)
		require.False(t, row.Dirty(), "fall-through cache entries are not journalled as dirty")
		require.Equal(t, uint64(1), row.Num(), "fall-through entry keeps the parent's block number")
	}
}

// GetPrimaryKeys integration: local+parent union, deleted-key masking, and
// post-union Limit, all exercised through StateStorage itself rather than
// through the standalone Condition helpers.
func TestStateStorageGetPrimaryKeysUnionAndMasking(t *testing.T) {
	parent := NewStateStorage(nil, 1, nil)
	ptbl := mustOpenOrCreateTable(t, parent, "t_kv", []string{"v"})

	for _, key := range []string{"a_parent", "b_parent", "c_shared", "d_parent"} {
		e := ptbl.NewEntry()
		require.NoError(t, e.SetField("v", "parent"))
		e.SetVersion(0)
		ok, err := ptbl.SetRow(key, e)
		require.NoError(t, err)
		require.True(t, ok)
	}

	child := NewStateStorage(parent, 2, nil)
	ctbl, err := child.OpenTable("t_kv")
	require.NoError(t, err)

	// A fresh local key not present in the parent.
	local := ctbl.NewEntry()
	require.NoError(t, local.SetField("v", "child"))
	local.SetVersion(0)
	ok, err := ctbl.SetRow("e_child", local)
	require.NoError(t, err)
	require.True(t, ok)

	// Overwrite a shared key locally (still visible, just re-versioned).
	shared := ctbl.NewEntry()
	require.NoError(t, shared.SetField("v", "child-shadow"))
	shared.SetVersion(1)
	ok, err = ctbl.SetRow("c_shared", shared)
	require.NoError(t, err)
	require.True(t, ok)

	// Delete a parent-only key locally: it must be masked out of the union.
	del := ctbl.NewDeletedEntry()
	del.SetVersion(1)
	ok, err = ctbl.SetRow("b_parent", del)
	require.NoError(t, err)
	require.True(t, ok)

	keys, err := child.GetPrimaryKeys("t_kv", NewCondition())
	require.NoError(t, err)
	require.Equal(t, []string{"a_parent", "c_shared", "d_parent", "e_child"}, keys,
		"union must include untouched parent keys and local keys, and mask the locally deleted one")

	// Limit is applied after the full union is computed.
	limited, err := child.GetPrimaryKeys("t_kv", NewCondition().Limit(1, 2))
	require.NoError(t, err)
	require.Equal(t, []string{"c_shared", "d_parent"}, limited)

	// A predicate narrows the union before Limit is applied.
	prefixed, err := child.GetPrimaryKeys("t_kv", NewCondition().StartsWith("a_"))
	require.NoError(t, err)
	require.Equal(t, []string{"a_parent"}, prefixed)
}
