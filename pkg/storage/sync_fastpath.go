package storage

// getRowSync, getRowsSync, and getPrimaryKeysSync let a StateStorage
// serve as another StateStorage's parent without paying for an async
// round trip: the child type-asserts its parent against syncStorage and
// calls straight through.
func (s *StateStorage) getRowSync(table, key string) (*Entry, error) {
	return s.GetRow(table, key)
}

func (s *StateStorage) getRowsSync(table string, keys []string) ([]*Entry, error) {
	return s.GetRows(table, keys)
}

func (s *StateStorage) getPrimaryKeysSync(table string, cond *Condition) ([]string, error) {
	return s.GetPrimaryKeys(table, cond)
}

var _ syncStorage = (*StateStorage)(nil)
var _ StorageInterface = (*StateStorage)(nil)
