package store

import (
	"database/sql"
	"fmt"
)

type scanner interface{ Scan(...any) error }

// --- File operations ---

const fileCols = `id, path, language, status, hash, exports, last_indexed`

func scanFile(sc scanner) (*File, error) {
	f := &File{}
	var hash, exports sql.NullString
	var indexed sql.NullTime
	if err := sc.Scan(&f.ID, &f.Path, &f.Language, &f.Status, &hash, &exports, &indexed); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.Exports = unmarshalStrings(exports.String)
	f.LastIndexed = indexed.Time
	return f, nil
}

// Files returns every file of the last build, sorted by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileByPath returns nil when path was not part of the last build.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// --- Definition operations ---

// definitionCols selects a definition joined with its file path.
const definitionCols = `d.id, d.key, d.uuid, d.file_id, COALESCE(f.path, ''), d.variant,
	COALESCE(d.origin, ''), d.name, d.kind, d.start_line, d.start_col, d.end_line, d.end_col`

const definitionFrom = ` FROM definitions d LEFT JOIN files f ON f.id = d.file_id`

func scanDefinition(sc scanner) (*Definition, error) {
	d := &Definition{}
	err := sc.Scan(
		&d.ID, &d.Key, &d.UUID, &d.FileID, &d.Path, &d.Variant,
		&d.Origin, &d.Name, &d.Kind, &d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) queryDefinitions(where string, args ...any) ([]*Definition, error) {
	rows, err := s.db.Query("SELECT "+definitionCols+definitionFrom+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []*Definition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (s *Store) queryDefinition(where string, args ...any) (*Definition, error) {
	d, err := scanDefinition(s.db.QueryRow("SELECT "+definitionCols+definitionFrom+" "+where, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// Definitions returns every definition in build order.
func (s *Store) Definitions() ([]*Definition, error) {
	return s.queryDefinitions("ORDER BY d.id")
}

// DefinitionByKey returns nil when no definition has key.
func (s *Store) DefinitionByKey(key string) (*Definition, error) {
	d, err := s.queryDefinition("WHERE d.key = ?", key)
	if err != nil {
		return nil, fmt.Errorf("definition by key: %w", err)
	}
	return d, nil
}

// DefinitionByID returns nil when no definition has id.
func (s *Store) DefinitionByID(id int64) (*Definition, error) {
	d, err := s.queryDefinition("WHERE d.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("definition by id: %w", err)
	}
	return d, nil
}

// DefinitionsByIDs returns the definitions with the given ids, in id order.
func (s *Store) DefinitionsByIDs(ids []int64) ([]*Definition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryDefinitions("WHERE d.id IN ("+placeholderList(len(ids))+") ORDER BY d.id", int64sToArgs(ids)...)
}

func (s *Store) DefinitionsByName(name string) ([]*Definition, error) {
	return s.queryDefinitions("WHERE d.name = ? ORDER BY d.id", name)
}

func (s *Store) DefinitionsByFile(path string) ([]*Definition, error) {
	return s.queryDefinitions("WHERE f.path = ? ORDER BY d.start_line, d.start_col", path)
}

// DefinitionAt returns the innermost declared definition of path whose
// range contains the 1-based position line:col, or nil.
func (s *Store) DefinitionAt(path string, line, col int) (*Definition, error) {
	defs, err := s.queryDefinitions(
		"WHERE f.path = ? AND d.variant = ? AND d.start_line <= ? AND d.end_line >= ? ORDER BY d.id",
		path, VariantDeclared, line, line,
	)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	var best *Definition
	for _, d := range defs {
		if !d.Contains(line, col) {
			continue
		}
		if best == nil || span(d) < span(best) {
			best = d
		}
	}
	return best, nil
}

// span orders ranges by size. Columns are weighted below any line.
func span(d *Definition) int {
	return (d.EndLine-d.StartLine)*100000 + (d.EndCol - d.StartCol)
}

// --- Block operations ---

const blockCols = `b.id, b.key, b.uuid, b.definition_id, d.key, b.parent_block_id,
	COALESCE(p.key, ''), b.start_line, b.start_col, b.end_line, b.end_col`

const blockFrom = ` FROM blocks b JOIN definitions d ON d.id = b.definition_id
	LEFT JOIN blocks p ON p.id = b.parent_block_id`

// BlocksByDefinition returns a definition's blocks, root block first.
func (s *Store) BlocksByDefinition(definitionID int64) ([]*Block, error) {
	rows, err := s.db.Query("SELECT "+blockCols+blockFrom+" WHERE b.definition_id = ? ORDER BY b.id", definitionID)
	if err != nil {
		return nil, fmt.Errorf("blocks by definition: %w", err)
	}
	defer rows.Close()
	var blocks []*Block
	for rows.Next() {
		b := &Block{}
		if err := rows.Scan(
			&b.ID, &b.Key, &b.UUID, &b.DefinitionID, &b.DefinitionKey, &b.ParentID,
			&b.ParentKey, &b.StartLine, &b.StartCol, &b.EndLine, &b.EndCol,
		); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// --- Call operations ---

const callCols = `c.id, c.key, c.uuid, c.block_id, b.key, c.caller_definition_id, cr.key,
	c.callee_definition_id, ce.key, c.ordinal, c.parameter, c.line, c.col`

const callFrom = ` FROM calls c JOIN blocks b ON b.id = c.block_id
	JOIN definitions cr ON cr.id = c.caller_definition_id
	JOIN definitions ce ON ce.id = c.callee_definition_id`

func (s *Store) queryCalls(where string, args ...any) ([]*Call, error) {
	rows, err := s.db.Query("SELECT "+callCols+callFrom+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var calls []*Call
	for rows.Next() {
		c := &Call{}
		var param sql.NullInt64
		if err := rows.Scan(
			&c.ID, &c.Key, &c.UUID, &c.BlockID, &c.BlockKey, &c.CallerID, &c.CallerKey,
			&c.CalleeID, &c.CalleeKey, &c.Ordinal, &param, &c.Line, &c.Col,
		); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		if param.Valid {
			p := int(param.Int64)
			c.Parameter = &p
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// AllCalls returns every call edge. Used for bulk-loading into in-memory
// adjacency maps for transitive traversal.
func (s *Store) AllCalls() ([]*Call, error) {
	return s.queryCalls("ORDER BY c.caller_definition_id, c.ordinal")
}

// Callees returns the calls made by a definition in document order.
func (s *Store) Callees(callerID int64) ([]*Call, error) {
	return s.queryCalls("WHERE c.caller_definition_id = ? ORDER BY c.ordinal", callerID)
}

// Callers returns the calls that target a definition.
func (s *Store) Callers(calleeID int64) ([]*Call, error) {
	return s.queryCalls("WHERE c.callee_definition_id = ? ORDER BY c.caller_definition_id, c.ordinal", calleeID)
}

// --- Callback operations ---

const callbackCols = `cb.id, cb.call_id, c.key, cb.definition_id, d.key, cb.position`

const callbackFrom = ` FROM callbacks cb JOIN calls c ON c.id = cb.call_id
	JOIN definitions d ON d.id = cb.definition_id`

func (s *Store) queryCallbacks(where string, args ...any) ([]*Callback, error) {
	rows, err := s.db.Query("SELECT "+callbackCols+callbackFrom+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cbs []*Callback
	for rows.Next() {
		cb := &Callback{}
		if err := rows.Scan(&cb.ID, &cb.CallID, &cb.CallKey, &cb.DefinitionID, &cb.DefinitionKey, &cb.Position); err != nil {
			return nil, fmt.Errorf("scan callback: %w", err)
		}
		cbs = append(cbs, cb)
	}
	return cbs, rows.Err()
}

// CallbacksOf returns the callbacks passed at a call, by position.
func (s *Store) CallbacksOf(callID int64) ([]*Callback, error) {
	return s.queryCallbacks("WHERE cb.call_id = ? ORDER BY cb.position", callID)
}

// CallbacksPassing returns every place a definition is passed as a
// callback.
func (s *Store) CallbacksPassing(definitionID int64) ([]*Callback, error) {
	return s.queryCallbacks("WHERE cb.definition_id = ? ORDER BY cb.call_id", definitionID)
}

// --- Diagnostic operations ---

// Diagnostics returns diagnostics for path, or for every file when path
// is empty.
func (s *Store) Diagnostics(path string) ([]*Diagnostic, error) {
	query := "SELECT id, path, line, col, severity, message FROM diagnostics"
	var args []any
	if path != "" {
		query += " WHERE path = ?"
		args = append(args, path)
	}
	rows, err := s.db.Query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.Path, &d.Line, &d.Col, &d.Severity, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Stats counts the rows of the persisted graph.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	for _, q := range []struct {
		dst   *int
		query string
	}{
		{&st.Files, "SELECT COUNT(*) FROM files"},
		{&st.Definitions, "SELECT COUNT(*) FROM definitions"},
		{&st.Synthetic, "SELECT COUNT(*) FROM definitions WHERE variant = '" + VariantSynthetic + "'"},
		{&st.Blocks, "SELECT COUNT(*) FROM blocks"},
		{&st.Calls, "SELECT COUNT(*) FROM calls"},
		{&st.Callbacks, "SELECT COUNT(*) FROM callbacks"},
		{&st.Diagnostics, "SELECT COUNT(*) FROM diagnostics"},
	} {
		if err := s.db.QueryRow(q.query).Scan(q.dst); err != nil {
			return Stats{}, fmt.Errorf("stats: %w", err)
		}
	}
	return st, nil
}
