package nocode

import (
	"fmt"

	"github.com/vallerance/no-code/internal/store"
)

// QueryBuilder provides a read-only query API over a persisted graph.
type QueryBuilder struct {
	store *store.Store
}

// Location represents a source code position range.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// LocationOf returns the source range of a definition.
func LocationOf(d *Definition) Location {
	return Location{
		File:      d.Path,
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
		EndLine:   d.EndLine,
		EndCol:    d.EndCol,
	}
}

// Files returns every file of the last build with its walk status.
func (q *QueryBuilder) Files() ([]*File, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

// Definitions returns the definitions of file ordered by position, or
// every definition in build order when file is empty.
func (q *QueryBuilder) Definitions(file string) ([]*Definition, error) {
	var (
		defs []*Definition
		err  error
	)
	if file == "" {
		defs, err = q.store.Definitions()
	} else {
		defs, err = q.store.DefinitionsByFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	return defs, nil
}

// Definition returns the definition with key, or nil.
func (q *QueryBuilder) Definition(key string) (*Definition, error) {
	return q.store.DefinitionByKey(key)
}

// DefinitionsByName returns every definition whose display name is name.
func (q *QueryBuilder) DefinitionsByName(name string) ([]*Definition, error) {
	defs, err := q.store.DefinitionsByName(name)
	if err != nil {
		return nil, fmt.Errorf("definitions by name: %w", err)
	}
	return defs, nil
}

// DefinitionAt returns the innermost declared definition containing the
// 1-based position, or nil.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) (*Definition, error) {
	return q.store.DefinitionAt(file, line, col)
}

// Blocks returns the blocks of a definition, root first. Returns nil, nil
// if key does not exist.
func (q *QueryBuilder) Blocks(key string) ([]*Block, error) {
	d, err := q.store.DefinitionByKey(key)
	if err != nil || d == nil {
		return nil, err
	}
	blocks, err := q.store.BlocksByDefinition(d.ID)
	if err != nil {
		return nil, fmt.Errorf("blocks: %w", err)
	}
	return blocks, nil
}

// Callers returns the calls that target the definition key.
func (q *QueryBuilder) Callers(key string) ([]*Call, error) {
	d, err := q.store.DefinitionByKey(key)
	if err != nil || d == nil {
		return nil, err
	}
	return q.store.Callers(d.ID)
}

// Callees returns the calls made by the definition key in document order.
func (q *QueryBuilder) Callees(key string) ([]*Call, error) {
	d, err := q.store.DefinitionByKey(key)
	if err != nil || d == nil {
		return nil, err
	}
	return q.store.Callees(d.ID)
}

// CallbackSite is one place a definition is passed as a callback.
type CallbackSite struct {
	Call     *Call
	Position int
}

// Callbacks returns every call that receives the definition key as a
// callback argument.
func (q *QueryBuilder) Callbacks(key string) ([]CallbackSite, error) {
	d, err := q.store.DefinitionByKey(key)
	if err != nil || d == nil {
		return nil, err
	}
	cbs, err := q.store.CallbacksPassing(d.ID)
	if err != nil {
		return nil, fmt.Errorf("callbacks: %w", err)
	}
	if len(cbs) == 0 {
		return nil, nil
	}

	calls, err := q.store.AllCalls()
	if err != nil {
		return nil, fmt.Errorf("callbacks: load calls: %w", err)
	}
	byID := make(map[int64]*Call, len(calls))
	for _, c := range calls {
		byID[c.ID] = c
	}

	sites := make([]CallbackSite, 0, len(cbs))
	for _, cb := range cbs {
		if c, ok := byID[cb.CallID]; ok {
			sites = append(sites, CallbackSite{Call: c, Position: cb.Position})
		}
	}
	return sites, nil
}

// CallbacksOf returns the callbacks passed at a call, by position.
func (q *QueryBuilder) CallbacksOf(call *Call) ([]*Callback, error) {
	return q.store.CallbacksOf(call.ID)
}

// Diagnostics returns the diagnostics of file, or of every file when file
// is empty.
func (q *QueryBuilder) Diagnostics(file string) ([]*Diagnostic, error) {
	diags, err := q.store.Diagnostics(file)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	return diags, nil
}

// Stats counts the rows of the persisted graph.
func (q *QueryBuilder) Stats() (Stats, error) {
	return q.store.Stats()
}
