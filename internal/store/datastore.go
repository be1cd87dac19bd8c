package store

// Reader is the read side of a persisted graph. Scripts and queries go
// through it so they never depend on how the graph is stored.
type Reader interface {
	Files() ([]*File, error)
	Definitions() ([]*Definition, error)
	DefinitionByKey(key string) (*Definition, error)
	DefinitionByID(id int64) (*Definition, error)
	DefinitionsByName(name string) ([]*Definition, error)
	DefinitionsByFile(path string) ([]*Definition, error)
	Callees(callerID int64) ([]*Call, error)
	Callers(calleeID int64) ([]*Call, error)
	CallbacksOf(callID int64) ([]*Callback, error)
	CallbacksPassing(definitionID int64) ([]*Callback, error)
	Diagnostics(path string) ([]*Diagnostic, error)
}

// Compile-time check: *Store satisfies Reader.
var _ Reader = (*Store)(nil)
