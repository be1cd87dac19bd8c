package callgraph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vallerance/no-code/internal/module"
	"github.com/vallerance/no-code/internal/sourcefile"
	"github.com/vallerance/no-code/internal/syntax"
)

// ErrNotFunction is returned when a variable declaration is resolved as a
// function but its value is not a function expression.
var ErrNotFunction = errors.New("callgraph: variable declaration is not a function")

// ResolveDeclaration returns the definition for decl, creating it the
// first time. decl may be a function-like node, a variable declarator
// bound to a function expression, or an import binding.
//
// A nil definition with a nil error means decl is out of reach: its file
// is skipped, an import leads outside the program, or the file has already
// been walked without producing a definition for it.
func (s *Session) ResolveDeclaration(decl *syntax.Node) (*DeclaredDefinition, error) {
	if decl == nil || decl.File == nil {
		return nil, nil
	}
	st := s.files.Ensure(decl.File.Path)
	if st.Status == sourcefile.Skipped {
		return nil, nil
	}
	if d := s.declared(KeyOf(decl)); d != nil {
		return d, nil
	}

	// Imports are never cached under their own key; the definition lives
	// in the target file.
	if syntax.IsImport(decl) {
		imp, ok := syntax.ImportOf(decl)
		if !ok {
			return nil, nil
		}
		def, _ := s.resolveExport(decl, imp)
		return def, nil
	}

	fn, anchor := decl, decl
	switch {
	case decl.Kind == "variable_declarator":
		fn = syntax.FunctionValue(decl)
		if fn == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFunction, decl)
		}
	case syntax.IsFunctionExpression(decl):
		anchor = variableAnchor(decl)
		if anchor != decl {
			if d := s.declared(KeyOf(anchor)); d != nil {
				return d, nil
			}
		}
	case !syntax.IsFunction(decl):
		s.report(decl, "Declaration is not a function.")
		return nil, nil
	}
	if st.Status == sourcefile.Done {
		return nil, nil
	}

	body := fn.Field("body")
	if body == nil {
		// Overload signatures and abstract methods.
		s.trace(fn, "Unable to find definition body.")
		return nil, nil
	}
	def := &DeclaredDefinition{
		key:      KeyOf(anchor),
		id:       uuid.NewString(),
		Decl:     anchor,
		Function: fn,
		Body:     body,
	}
	def.Block = &Block{
		Key:   KeyOf(body),
		ID:    uuid.NewString(),
		Node:  body,
		Owner: def.key,
	}
	s.graph.add(def)
	s.graph.addBlock(def.Block)
	s.trace(anchor, "Found declaration.")
	return def, nil
}

// resolve is ResolveDeclaration with errors reported instead of returned.
func (s *Session) resolve(decl *syntax.Node) *DeclaredDefinition {
	def, err := s.ResolveDeclaration(decl)
	if err != nil {
		s.fail(decl, err)
		return nil
	}
	return def
}

func (s *Session) declared(k Key) *DeclaredDefinition {
	d, _ := s.graph.defs[k].(*DeclaredDefinition)
	return d
}

// variableAnchor returns the declarator fn is the value of, looking
// through parentheses and type assertions, or fn itself.
func variableAnchor(fn *syntax.Node) *syntax.Node {
	n := fn
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Kind {
		case "parenthesized_expression", "as_expression", "satisfies_expression",
			"non_null_expression", "type_assertion":
			n = p
			continue
		case "variable_declarator":
			if syntax.FunctionValue(p) == fn {
				return p
			}
		}
		return fn
	}
	return fn
}

// resolveExport follows an import to the definition exported by the
// target module. The returned reason explains a nil definition when the
// target is inside the program.
func (s *Session) resolveExport(at *syntax.Node, imp syntax.Import) (*DeclaredDefinition, string) {
	path, _, ok := module.Lookup(s.resolver, imp.Specifier, at.File.Path, s.program.Table())
	if !ok {
		s.trace(at, fmt.Sprintf("Module %q is outside the program.", imp.Specifier))
		return nil, ""
	}
	st := s.files.Ensure(path)
	switch st.Status {
	case sourcefile.Skipped:
		return nil, ""
	case sourcefile.InProgress:
		if def, ok := st.Lookup(imp.Name); ok {
			return def, ""
		}
		return nil, fmt.Sprintf("Export %q of %s is not available inside an import cycle.", imp.Name, path)
	}
	if def, ok := st.Lookup(imp.Name); ok {
		return def, ""
	}
	return nil, fmt.Sprintf("Module %s has no function export %q.", path, imp.Name)
}

// calleeIdentifier picks the identifier that names the callee of call: a
// plain identifier, the property of a member access, or failing that the
// object it is accessed on.
func calleeIdentifier(call *syntax.Node) *syntax.Node {
	fn := syntax.Unwrap(call.Field("function"))
	if fn == nil {
		return nil
	}
	switch fn.Kind {
	case "identifier":
		return fn
	case "member_expression":
		if prop := fn.Field("property"); prop != nil && prop.Kind == "property_identifier" {
			return prop
		}
		if obj := syntax.Unwrap(fn.Field("object")); obj != nil && obj.Kind == "identifier" {
			return obj
		}
	}
	return nil
}

// resolveCallee classifies the callee of call. It returns the target
// definition, or a parameter reference when the callee is a parameter of
// an enclosing function, or neither.
func (s *Session) resolveCallee(call *syntax.Node) (Definition, *ParamRef) {
	ident := calleeIdentifier(call)
	if ident == nil {
		s.report(call, "Could not find identifier for call expression.")
		return nil, nil
	}
	if imp, ok := syntax.MemberImport(ident); ok {
		def, reason := s.resolveExport(ident, imp)
		if def == nil {
			if reason != "" {
				s.report(ident, reason)
			}
			return nil, nil
		}
		return def, nil
	}

	decl := syntax.DeclarationOf(ident)
	switch {
	case decl == nil:
		s.report(ident, fmt.Sprintf("No declaration for %q.", ident.Text()))
		return nil, nil
	case syntax.IsImport(decl):
		imp, ok := syntax.ImportOf(decl)
		if !ok {
			return nil, nil
		}
		def, reason := s.resolveExport(decl, imp)
		if def == nil {
			if reason != "" {
				s.report(ident, reason)
			}
			return nil, nil
		}
		return def, nil
	case syntax.IsFunction(decl), syntax.FunctionValue(decl) != nil:
		if def := s.resolve(decl); def != nil {
			return def, nil
		}
		return nil, nil
	}

	if fn, index, ok := syntax.ParameterOf(decl); ok {
		owner := s.resolve(fn)
		if owner == nil {
			s.report(ident, "Parameter belongs to a function without a definition.")
			return nil, nil
		}
		return nil, &ParamRef{Owner: owner.key, Index: index}
	}
	s.report(ident, fmt.Sprintf("Declaration of %q is not callable.", ident.Text()))
	return nil, nil
}

// resolveCallbacks returns the function-valued arguments of call and
// their positions.
func (s *Session) resolveCallbacks(call *syntax.Node) ([]Definition, []int) {
	args := call.Field("arguments")
	if args == nil || args.Kind != "arguments" {
		return nil, nil
	}
	var (
		defs      []Definition
		positions []int
	)
	for i, arg := range args.NamedChildren() {
		if def := s.callbackDefinition(syntax.Unwrap(arg)); def != nil {
			defs = append(defs, def)
			positions = append(positions, i)
		}
	}
	return defs, positions
}

// callbackDefinition resolves arg when it is a function literal, or a
// reference to something declared as a function. Other arguments are
// ignored silently.
func (s *Session) callbackDefinition(arg *syntax.Node) *DeclaredDefinition {
	if arg == nil {
		return nil
	}
	switch {
	case syntax.IsFunctionExpression(arg):
		return s.resolve(arg)
	case arg.Kind == "identifier":
		d := syntax.DeclarationOf(arg)
		if syntax.IsFunction(d) || syntax.FunctionValue(d) != nil || syntax.IsImport(d) {
			return s.resolve(d)
		}
	case arg.Kind == "member_expression":
		if imp, ok := syntax.MemberImport(arg); ok {
			def, _ := s.resolveExport(arg, imp)
			return def
		}
		if d := syntax.DeclarationOf(arg); syntax.IsFunction(d) {
			return s.resolve(d)
		}
	}
	return nil
}

// bind records callbacks passed to callee so parameter calls inside
// callee can be linked once the whole program has been walked.
func (s *Session) bind(callee Key, positions []int, callbacks []Definition) {
	if len(callbacks) == 0 {
		return
	}
	byPos := s.bindings[callee]
	if byPos == nil {
		byPos = make(map[int][]Definition)
		s.bindings[callee] = byPos
	}
	for i, cb := range callbacks {
		pos := positions[i]
		if !containsKey(byPos[pos], cb.Key()) {
			byPos[pos] = append(byPos[pos], cb)
		}
	}
}

func containsKey(defs []Definition, k Key) bool {
	for _, d := range defs {
		if d.Key() == k {
			return true
		}
	}
	return false
}
