package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/vallerance/no-code/internal/store"
)

// Graph host functions. Risor cannot hold Go struct pointers usefully, so
// every row is converted to a map of primitives on the Go side.

func makeFilesFn(s store.Reader) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.Files()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		results := make([]object.Object, 0, len(files))
		for _, f := range files {
			exports := make([]object.Object, 0, len(f.Exports))
			for _, e := range f.Exports {
				exports = append(exports, object.NewString(e))
			}
			results = append(results, object.NewMap(map[string]object.Object{
				"id":       object.NewInt(f.ID),
				"path":     object.NewString(f.Path),
				"language": object.NewString(f.Language),
				"status":   object.NewString(f.Status),
				"exports":  object.NewList(exports),
			}))
		}
		return object.NewList(results)
	})
}

func makeDefinitionsFn(s store.Reader) *object.Builtin {
	return object.NewBuiltin("definitions", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("definitions", 0, len(args))
		}
		defs, err := s.Definitions()
		if err != nil {
			return object.Errorf("definitions: %v", err)
		}
		return definitionsToList(defs)
	})
}

// definition(key) → map or nil
func makeDefinitionFn(s store.Reader) *object.Builtin {
	return object.NewBuiltin("definition", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("definition", 1, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("definition: %v", err)
		}
		d, err := s.DefinitionByKey(key)
		if err != nil {
			return object.Errorf("definition: %v", err)
		}
		if d == nil {
			return object.Nil
		}
		return definitionToMap(d)
	})
}

func makeDefinitionsByNameFn(s store.Reader) *object.Builtin {
	return object.NewBuiltin("definitions_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("definitions_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("definitions_by_name: %v", err)
		}
		defs, err := s.DefinitionsByName(name)
		if err != nil {
			return object.Errorf("definitions_by_name: %v", err)
		}
		return definitionsToList(defs)
	})
}

func makeDefinitionsInFn(s store.Reader) *object.Builtin {
	return object.NewBuiltin("definitions_in", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("definitions_in", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("definitions_in: %v", err)
		}
		defs, err := s.DefinitionsByFile(path)
		if err != nil {
			return object.Errorf("definitions_in: %v", err)
		}
		return definitionsToList(defs)
	})
}

// callees(key) → list of call maps, in document order
func makeCalleesFn(s store.Reader) *object.Builtin {
	return makeCallEdgesFn(s, "callees", s.Callees)
}

// callers(key) → list of call maps
func makeCallersFn(s store.Reader) *object.Builtin {
	return makeCallEdgesFn(s, "callers", s.Callers)
}

func makeCallEdgesFn(s store.Reader, name string, edges func(int64) ([]*store.Call, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		d, err := s.DefinitionByKey(key)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		if d == nil {
			return object.NewList([]object.Object{})
		}
		calls, err := edges(d.ID)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		results := make([]object.Object, 0, len(calls))
		for _, c := range calls {
			cbs, err := s.CallbacksOf(c.ID)
			if err != nil {
				return object.Errorf("%s: %v", name, err)
			}
			results = append(results, callToMap(c, cbs))
		}
		return object.NewList(results)
	})
}

// callbacks(key) → where the definition key is passed as a callback
func makeCallbacksFn(s store.Reader) *object.Builtin {
	return object.NewBuiltin("callbacks", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("callbacks", 1, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("callbacks: %v", err)
		}
		d, err := s.DefinitionByKey(key)
		if err != nil {
			return object.Errorf("callbacks: %v", err)
		}
		if d == nil {
			return object.NewList([]object.Object{})
		}
		cbs, err := s.CallbacksPassing(d.ID)
		if err != nil {
			return object.Errorf("callbacks: %v", err)
		}
		results := make([]object.Object, 0, len(cbs))
		for _, cb := range cbs {
			results = append(results, object.NewMap(map[string]object.Object{
				"call_key": object.NewString(cb.CallKey),
				"position": object.NewInt(int64(cb.Position)),
			}))
		}
		return object.NewList(results)
	})
}

// diagnostics([path]) → list of maps
func makeDiagnosticsFn(s store.Reader) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.NewArgsError("diagnostics", 1, len(args))
		}
		var path string
		if len(args) == 1 {
			p, err := toString(args[0])
			if err != nil {
				return object.Errorf("diagnostics: %v", err)
			}
			path = p
		}
		diags, err := s.Diagnostics(path)
		if err != nil {
			return object.Errorf("diagnostics: %v", err)
		}
		results := make([]object.Object, 0, len(diags))
		for _, d := range diags {
			results = append(results, object.NewMap(map[string]object.Object{
				"path":     object.NewString(d.Path),
				"line":     object.NewInt(int64(d.Line)),
				"col":      object.NewInt(int64(d.Col)),
				"severity": object.NewString(d.Severity),
				"message":  object.NewString(d.Message),
			}))
		}
		return object.NewList(results)
	})
}

// emit(values...) writes its arguments separated by spaces, then a newline.
func makeEmitFn(w io.Writer) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		parts := make([]string, len(args))
		for i, arg := range args {
			if s, ok := arg.(*object.String); ok {
				parts[i] = s.Value()
			} else {
				parts[i] = arg.Inspect()
			}
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
			return object.Errorf("emit: %v", err)
		}
		return object.Nil
	})
}

func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, arg.Inspect())
			}
		}

		rows, err := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return object.Errorf("db_query: columns: %v", err)
		}
		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string)  { l.logger.Info(msg, "source", "script") }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg, "source", "script") }
func (l *logObject) Error(msg string) { l.logger.Error(msg, "source", "script") }

// --- Conversion helpers ---

func definitionToMap(d *store.Definition) object.Object {
	return object.NewMap(map[string]object.Object{
		"id":         object.NewInt(d.ID),
		"key":        object.NewString(d.Key),
		"uuid":       object.NewString(d.UUID),
		"path":       object.NewString(d.Path),
		"variant":    object.NewString(d.Variant),
		"origin":     object.NewString(d.Origin),
		"name":       object.NewString(d.Name),
		"kind":       object.NewString(d.Kind),
		"start_line": object.NewInt(int64(d.StartLine)),
		"start_col":  object.NewInt(int64(d.StartCol)),
		"end_line":   object.NewInt(int64(d.EndLine)),
		"end_col":    object.NewInt(int64(d.EndCol)),
	})
}

func definitionsToList(defs []*store.Definition) object.Object {
	results := make([]object.Object, 0, len(defs))
	for _, d := range defs {
		results = append(results, definitionToMap(d))
	}
	return object.NewList(results)
}

func callToMap(c *store.Call, cbs []*store.Callback) object.Object {
	callbacks := make([]object.Object, 0, len(cbs))
	for _, cb := range cbs {
		callbacks = append(callbacks, object.NewString(cb.DefinitionKey))
	}
	m := map[string]object.Object{
		"key":        object.NewString(c.Key),
		"caller_key": object.NewString(c.CallerKey),
		"callee_key": object.NewString(c.CalleeKey),
		"block_key":  object.NewString(c.BlockKey),
		"ordinal":    object.NewInt(int64(c.Ordinal)),
		"line":       object.NewInt(int64(c.Line)),
		"col":        object.NewInt(int64(c.Col)),
		"callbacks":  object.NewList(callbacks),
		"parameter":  object.Nil,
	}
	if c.Parameter != nil {
		m["parameter"] = object.NewInt(int64(*c.Parameter))
	}
	return object.NewMap(m)
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
