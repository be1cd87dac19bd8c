package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CommitBatch replaces the persisted graph with the contents of batch
// within a single transaction. Key references between rows are resolved
// to the ids SQLite assigns.
//
// Insert order respects FK dependencies:
//  1. Files
//  2. Definitions (depend on files by path)
//  3. Blocks (depend on definitions and on earlier blocks)
//  4. Calls (depend on blocks and definitions)
//  5. Callbacks (depend on calls and definitions)
//  6. Diagnostics
//
// A row that refers to a key missing from the batch is an error, and
// nothing is written.
func (s *Store) CommitBatch(batch *Batch) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if err := clearTx(tx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	now := time.Now().UTC()

	// 1. Files
	fileIDs := make(map[string]int64, len(batch.Files))
	for i := range batch.Files {
		f := &batch.Files[i]
		if f.LastIndexed.IsZero() {
			f.LastIndexed = now
		}
		res, err := tx.Exec(
			"INSERT INTO files (path, language, status, hash, exports, last_indexed) VALUES (?, ?, ?, ?, ?, ?)",
			f.Path, f.Language, f.Status, f.Hash, marshalStrings(f.Exports), f.LastIndexed,
		)
		if err != nil {
			return fmt.Errorf("commit batch: file %q: %w", f.Path, err)
		}
		if f.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit batch: last insert id: %w", err)
		}
		fileIDs[f.Path] = f.ID
	}

	// 2. Definitions
	defIDs := make(map[string]int64, len(batch.Definitions))
	for i := range batch.Definitions {
		d := &batch.Definitions[i]
		if id, ok := fileIDs[d.Path]; ok {
			d.FileID = &id
		}
		res, err := tx.Exec(
			`INSERT INTO definitions (key, uuid, file_id, variant, origin, name, kind,
				start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.Key, d.UUID, d.FileID, d.Variant, nullString(d.Origin), d.Name, d.Kind,
			d.StartLine, d.StartCol, d.EndLine, d.EndCol,
		)
		if err != nil {
			return fmt.Errorf("commit batch: definition %q: %w", d.Key, err)
		}
		if d.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit batch: last insert id: %w", err)
		}
		defIDs[d.Key] = d.ID
	}

	// 3. Blocks. Parents always precede their children in the batch.
	blockIDs := make(map[string]int64, len(batch.Blocks))
	for i := range batch.Blocks {
		bl := &batch.Blocks[i]
		defID, ok := defIDs[bl.DefinitionKey]
		if !ok {
			return fmt.Errorf("commit batch: block %q: unknown definition %q", bl.Key, bl.DefinitionKey)
		}
		bl.DefinitionID = defID
		if bl.ParentKey != "" {
			parentID, ok := blockIDs[bl.ParentKey]
			if !ok {
				return fmt.Errorf("commit batch: block %q: unknown parent %q", bl.Key, bl.ParentKey)
			}
			bl.ParentID = &parentID
		}
		res, err := tx.Exec(
			`INSERT INTO blocks (key, uuid, definition_id, parent_block_id,
				start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			bl.Key, bl.UUID, bl.DefinitionID, bl.ParentID,
			bl.StartLine, bl.StartCol, bl.EndLine, bl.EndCol,
		)
		if err != nil {
			return fmt.Errorf("commit batch: block %q: %w", bl.Key, err)
		}
		if bl.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit batch: last insert id: %w", err)
		}
		blockIDs[bl.Key] = bl.ID
	}

	// 4. Calls
	callIDs := make(map[string]int64, len(batch.Calls))
	for i := range batch.Calls {
		c := &batch.Calls[i]
		if err := resolveCallIDs(c, blockIDs, defIDs); err != nil {
			return fmt.Errorf("commit batch: call %q: %w", c.Key, err)
		}
		res, err := tx.Exec(
			`INSERT INTO calls (key, uuid, block_id, caller_definition_id, callee_definition_id,
				ordinal, parameter, line, col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Key, c.UUID, c.BlockID, c.CallerID, c.CalleeID,
			c.Ordinal, c.Parameter, c.Line, c.Col,
		)
		if err != nil {
			return fmt.Errorf("commit batch: call %q: %w", c.Key, err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit batch: last insert id: %w", err)
		}
		callIDs[c.Key] = c.ID
	}

	// 5. Callbacks
	for i := range batch.Callbacks {
		cb := &batch.Callbacks[i]
		var ok bool
		if cb.CallID, ok = callIDs[cb.CallKey]; !ok {
			return fmt.Errorf("commit batch: callback: unknown call %q", cb.CallKey)
		}
		if cb.DefinitionID, ok = defIDs[cb.DefinitionKey]; !ok {
			return fmt.Errorf("commit batch: callback: unknown definition %q", cb.DefinitionKey)
		}
		res, err := tx.Exec(
			"INSERT INTO callbacks (call_id, definition_id, position) VALUES (?, ?, ?)",
			cb.CallID, cb.DefinitionID, cb.Position,
		)
		if err != nil {
			return fmt.Errorf("commit batch: callback of %q: %w", cb.CallKey, err)
		}
		if cb.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit batch: last insert id: %w", err)
		}
	}

	// 6. Diagnostics
	for i := range batch.Diagnostics {
		d := &batch.Diagnostics[i]
		res, err := tx.Exec(
			"INSERT INTO diagnostics (path, line, col, severity, message) VALUES (?, ?, ?, ?, ?)",
			d.Path, d.Line, d.Col, d.Severity, d.Message,
		)
		if err != nil {
			return fmt.Errorf("commit batch: diagnostic: %w", err)
		}
		if d.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit batch: last insert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	return nil
}

func resolveCallIDs(c *Call, blockIDs, defIDs map[string]int64) error {
	var ok bool
	if c.BlockID, ok = blockIDs[c.BlockKey]; !ok {
		return fmt.Errorf("unknown block %q", c.BlockKey)
	}
	if c.CallerID, ok = defIDs[c.CallerKey]; !ok {
		return fmt.Errorf("unknown caller %q", c.CallerKey)
	}
	if c.CalleeID, ok = defIDs[c.CalleeKey]; !ok {
		return fmt.Errorf("unknown callee %q", c.CalleeKey)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
