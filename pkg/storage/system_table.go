package storage

// IsSysTable reports whether name refers to the bootstrap catalog table
// that every StateStorage carries.
func IsSysTable(name string) bool {
	return name == SysTableName
}
