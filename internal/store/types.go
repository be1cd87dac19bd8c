package store

import "time"

// Row types. Fields ending in Key carry the graph key of a related row;
// CommitBatch turns them into ids, and reads fill them back in.

type File struct {
	ID          int64
	Path        string
	Language    string
	Status      string
	Hash        string
	Exports     []string
	LastIndexed time.Time
}

// Definition variants and synthetic origins, as stored.
const (
	VariantDeclared  = "declared"
	VariantSynthetic = "synthetic"

	OriginRun  = "run"
	OriginCall = "call"
)

type Definition struct {
	ID        int64
	Key       string
	UUID      string
	FileID    *int64
	Path      string
	Variant   string
	Origin    string
	Name      string
	Kind      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Contains reports whether the 1-based position line:col lies inside d.
func (d *Definition) Contains(line, col int) bool {
	if line < d.StartLine || line > d.EndLine {
		return false
	}
	if line == d.StartLine && col < d.StartCol {
		return false
	}
	if line == d.EndLine && col > d.EndCol {
		return false
	}
	return true
}

type Block struct {
	ID            int64
	Key           string
	UUID          string
	DefinitionID  int64
	DefinitionKey string
	ParentID      *int64
	ParentKey     string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
}

type Call struct {
	ID        int64
	Key       string
	UUID      string
	BlockID   int64
	BlockKey  string
	CallerID  int64
	CallerKey string
	CalleeID  int64
	CalleeKey string
	// Ordinal is the document order of the call within its caller.
	Ordinal int
	// Parameter is the caller's parameter index when the callee was bound
	// through it.
	Parameter *int
	Line      int
	Col       int
}

type Callback struct {
	ID            int64
	CallID        int64
	CallKey       string
	DefinitionID  int64
	DefinitionKey string
	Position      int
}

type Diagnostic struct {
	ID       int64
	Path     string
	Line     int
	Col      int
	Severity string
	Message  string
}

// Stats counts the rows of a persisted graph.
type Stats struct {
	Files       int
	Definitions int
	Synthetic   int
	Blocks      int
	Calls       int
	Callbacks   int
	Diagnostics int
}
