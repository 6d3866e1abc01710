package storage

import "testing"

func TestEntryCapacityTracksFieldMutation(t *testing.T) {
	info := NewTableInfo("t_test", []string{"name", "balance"})
	e := newEntryFor(info, 0)

	if err := e.SetField("name", "Lili"); err != nil {
		t.Fatalf("SetField(name) error: %v", err)
	}
	if got, want := e.CapacityOfHashField(), 4; got != want {
		t.Fatalf("CapacityOfHashField() = %d, want %d", got, want)
	}

	if err := e.SetField("balance", "500"); err != nil {
		t.Fatalf("SetField(balance) error: %v", err)
	}
	if got, want := e.CapacityOfHashField(), 7; got != want {
		t.Fatalf("CapacityOfHashField() = %d, want %d", got, want)
	}

	if err := e.SetField("name", "Al"); err != nil {
		t.Fatalf("SetField(name) shrink error: %v", err)
	}
	if got, want := e.CapacityOfHashField(), 5; got != want {
		t.Fatalf("CapacityOfHashField() after shrink = %d, want %d", got, want)
	}
	if !e.Dirty() {
		t.Fatalf("entry should be dirty after SetField")
	}
}

func TestEntrySetFieldUnknownName(t *testing.T) {
	info := NewTableInfo("t_test", []string{"name"})
	e := newEntryFor(info, 0)
	if err := e.SetField("missing", "x"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestEntryCloneSharesPayloadUntilMutated(t *testing.T) {
	info := NewTableInfo("t_test", []string{"name"})
	e := newEntryFor(info, 0)
	_ = e.SetField("name", "Lili")

	clone := e.Clone()
	if got := e.RefCount(); got != 2 {
		t.Fatalf("RefCount() after Clone = %d, want 2", got)
	}

	if err := clone.SetField("name", "Bob"); err != nil {
		t.Fatalf("SetField on clone error: %v", err)
	}

	origVal, _ := e.GetField("name")
	cloneVal, _ := clone.GetField("name")
	if origVal != "Lili" {
		t.Fatalf("original entry mutated: got %q, want %q", origVal, "Lili")
	}
	if cloneVal != "Bob" {
		t.Fatalf("clone entry = %q, want %q", cloneVal, "Bob")
	}
}

func TestEntryValidReflectsStatusAndRollback(t *testing.T) {
	info := NewTableInfo("t_test", []string{"name"})
	e := newEntryFor(info, 0)
	if !e.Valid() {
		t.Fatalf("fresh normal entry should be valid")
	}

	e.SetStatus(StatusDeleted)
	if e.Valid() {
		t.Fatalf("deleted entry should not be valid")
	}

	e.SetStatus(StatusNormal)
	e.SetRollbacked(true)
	if e.Valid() {
		t.Fatalf("rolled-back entry should not be valid")
	}
}

func TestEntryImportExportFields(t *testing.T) {
	info := NewTableInfo("t_test", []string{"a", "b", "c"})
	e := newEntryFor(info, 0)
	e.ImportFields([]string{"x", "yy", "zzz"})
	if got, want := e.CapacityOfHashField(), 6; got != want {
		t.Fatalf("CapacityOfHashField() = %d, want %d", got, want)
	}

	exported := e.ExportFields()
	if len(exported) != 3 {
		t.Fatalf("ExportFields() len = %d, want 3", len(exported))
	}
	if got, want := e.CapacityOfHashField(), 0; got != want {
		t.Fatalf("CapacityOfHashField() after export = %d, want %d", got, want)
	}
}
