package syntax

import "strings"

// DeclarationOf returns the node that declares what ref refers to, or nil.
//
// ref may be an identifier, or the property of a member expression (or the
// member expression itself). Declarations are reported as:
//
//	function/class declarations   the declaration node
//	variables                     the variable_declarator
//	parameters                    the parameter node inside formal_parameters
//	imports                       import_specifier, namespace_import, or the
//	                              default-import identifier in import_clause
//	object and class members      method_definition, or the function value
func DeclarationOf(ref *Node) *Node {
	if ref == nil {
		return nil
	}
	switch ref.Kind {
	case "identifier", "shorthand_property_identifier":
		return lookup(ref, ref.Text())
	case "property_identifier", "private_property_identifier":
		if m := ref.Parent; m != nil && m.Kind == "member_expression" && m.Field("property") == ref {
			return memberDeclaration(m)
		}
	case "member_expression":
		return memberDeclaration(ref)
	}
	return nil
}

// Lookup resolves name lexically from the position of from.
func Lookup(from *Node, name string) *Node {
	return lookup(from, name)
}

func lookup(from *Node, name string) *Node {
	for scope := from.Parent; scope != nil; scope = scope.Parent {
		if d := declaredIn(scope, name); d != nil {
			return d
		}
	}
	return nil
}

func declaredIn(scope *Node, name string) *Node {
	switch scope.Kind {
	case "program", "statement_block", "class_static_block", "switch_case", "switch_default":
		for _, stmt := range scope.NamedChildren() {
			if d := declaredBy(stmt, name); d != nil {
				return d
			}
		}
		return nil
	case "for_statement", "for_in_statement":
		for _, c := range scope.NamedChildren() {
			if c.Kind == "lexical_declaration" || c.Kind == "variable_declaration" {
				if d := declaredBy(c, name); d != nil {
					return d
				}
			}
		}
		return nil
	}
	if IsFunction(scope) {
		if d := parameterNamed(scope, name); d != nil {
			return d
		}
		if scope.Kind != "arrow_function" && scope.Kind != "method_definition" && IsFunctionExpression(scope) {
			if n := scope.Field("name"); n != nil && n.Text() == name {
				return scope
			}
		}
	}
	return nil
}

func declaredBy(stmt *Node, name string) *Node {
	switch stmt.Kind {
	case "function_declaration", "generator_function_declaration",
		"class_declaration", "abstract_class_declaration":
		if n := stmt.Field("name"); n != nil && n.Text() == name {
			return stmt
		}
	case "lexical_declaration", "variable_declaration":
		for _, d := range stmt.NamedChildren() {
			if d.Kind != "variable_declarator" {
				continue
			}
			if n := d.Field("name"); n != nil && n.Kind == "identifier" && n.Text() == name {
				return d
			}
		}
	case "import_statement":
		return importBinding(stmt, name)
	case "export_statement":
		if d := stmt.Field("declaration"); d != nil {
			return declaredBy(d, name)
		}
	}
	return nil
}

func importBinding(stmt *Node, name string) *Node {
	clause := stmt.FirstNamed("import_clause")
	if clause == nil {
		return nil
	}
	for _, c := range clause.NamedChildren() {
		switch c.Kind {
		case "identifier":
			if c.Text() == name {
				return c
			}
		case "namespace_import":
			if id := c.FirstNamed("identifier"); id != nil && id.Text() == name {
				return c
			}
		case "named_imports":
			for _, spec := range c.NamedChildren() {
				if spec.Kind != "import_specifier" {
					continue
				}
				local := spec.Field("alias")
				if local == nil {
					local = spec.Field("name")
				}
				if local != nil && local.Text() == name {
					return spec
				}
			}
		}
	}
	return nil
}

func parameterNamed(fn *Node, name string) *Node {
	if p := fn.Field("parameter"); p != nil {
		if p.Kind == "identifier" && p.Text() == name {
			return p
		}
		return nil
	}
	params := fn.Field("parameters")
	if params == nil {
		return nil
	}
	for _, p := range params.NamedChildren() {
		if parameterName(p) == name {
			return p
		}
	}
	return nil
}

func parameterName(p *Node) string {
	switch p.Kind {
	case "identifier":
		return p.Text()
	case "required_parameter", "optional_parameter":
		if pat := p.Field("pattern"); pat != nil && pat.Kind == "identifier" {
			return pat.Text()
		}
	case "assignment_pattern":
		if l := p.Field("left"); l != nil && l.Kind == "identifier" {
			return l.Text()
		}
	case "rest_pattern":
		if id := p.FirstNamed("identifier"); id != nil {
			return id.Text()
		}
	}
	return ""
}

// ParameterOf reports the function that declares the parameter decl and
// the parameter's position.
func ParameterOf(decl *Node) (fn *Node, index int, ok bool) {
	if decl == nil || decl.Parent == nil {
		return nil, 0, false
	}
	parent := decl.Parent
	if parent.Kind == "formal_parameters" {
		for i, p := range parent.NamedChildren() {
			if p == decl {
				return parent.Parent, i, parent.Parent != nil
			}
		}
		return nil, 0, false
	}
	if IsFunction(parent) && parent.Field("parameter") == decl {
		return parent, 0, true
	}
	return nil, 0, false
}

func memberDeclaration(m *Node) *Node {
	prop := m.Field("property")
	obj := Unwrap(m.Field("object"))
	if prop == nil || obj == nil {
		return nil
	}
	name := prop.Text()
	switch obj.Kind {
	case "this":
		if body := enclosingClassBody(m); body != nil {
			return classMember(body, name)
		}
	case "identifier":
		d := lookup(obj, obj.Text())
		if d == nil {
			return nil
		}
		switch d.Kind {
		case "class_declaration", "abstract_class_declaration":
			return classMember(d.Field("body"), name)
		case "variable_declarator":
			v := Unwrap(d.Field("value"))
			if v == nil {
				return nil
			}
			switch v.Kind {
			case "object":
				return objectMember(v, name)
			case "class":
				return classMember(v.Field("body"), name)
			}
		}
	}
	return nil
}

// enclosingClassBody finds the class whose instance "this" refers to at n.
// Arrow functions are transparent; any other function ends the search.
func enclosingClassBody(n *Node) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		switch {
		case p.Kind == "class_body":
			return p
		case p.Kind == "method_definition", p.Kind == "arrow_function":
		case IsFunction(p):
			return nil
		}
	}
	return nil
}

func classMember(body *Node, name string) *Node {
	if body == nil {
		return nil
	}
	for _, c := range body.NamedChildren() {
		switch c.Kind {
		case "method_definition":
			if Name(c) == name {
				return c
			}
		case "public_field_definition", "field_definition":
			n := c.Field("name")
			if n == nil {
				n = c.Field("property")
			}
			if n != nil && n.Text() == name {
				if v := Unwrap(c.Field("value")); IsFunctionExpression(v) {
					return v
				}
				return nil
			}
		}
	}
	return nil
}

func objectMember(obj *Node, name string) *Node {
	for _, c := range obj.NamedChildren() {
		switch c.Kind {
		case "pair":
			if propertyKey(c.Field("key")) != name {
				continue
			}
			if v := Unwrap(c.Field("value")); IsFunctionExpression(v) {
				return v
			}
			return nil
		case "method_definition":
			if Name(c) == name {
				return c
			}
		case "shorthand_property_identifier":
			if c.Text() == name {
				return lookup(obj, name)
			}
		}
	}
	return nil
}

func propertyKey(k *Node) string {
	if k == nil {
		return ""
	}
	if k.Kind == "string" {
		return unquote(k.Text())
	}
	return k.Text()
}

// Import describes an import binding.
type Import struct {
	// Specifier is the module specifier without quotes.
	Specifier string
	// Name is the export looked up in the target module. Default and
	// namespace imports use "default".
	Name string
	// Binding is the declaration node inside the import statement.
	Binding *Node
}

// IsImport reports whether decl is an import binding.
func IsImport(decl *Node) bool {
	if decl == nil {
		return false
	}
	switch decl.Kind {
	case "import_specifier", "namespace_import":
		return true
	case "identifier":
		return decl.Parent != nil && decl.Parent.Kind == "import_clause"
	}
	return false
}

// ImportOf describes the import binding decl.
func ImportOf(decl *Node) (Import, bool) {
	if !IsImport(decl) {
		return Import{}, false
	}
	stmt := decl.Ancestor("import_statement")
	if stmt == nil {
		return Import{}, false
	}
	imp := Import{Specifier: moduleSpecifier(stmt), Binding: decl, Name: "default"}
	if decl.Kind == "import_specifier" {
		if n := decl.Field("name"); n != nil {
			imp.Name = unquote(n.Text())
		}
	}
	return imp, imp.Specifier != ""
}

// MemberImport handles "ns.member" where ns is a namespace import. It
// reports the import with Name set to the member.
func MemberImport(ref *Node) (Import, bool) {
	m := ref
	if ref != nil && ref.Kind != "member_expression" {
		m = ref.Parent
		if m == nil || m.Field("property") != ref {
			return Import{}, false
		}
	}
	if m == nil || m.Kind != "member_expression" {
		return Import{}, false
	}
	obj := Unwrap(m.Field("object"))
	prop := m.Field("property")
	if obj == nil || prop == nil || obj.Kind != "identifier" {
		return Import{}, false
	}
	d := lookup(obj, obj.Text())
	if d == nil || d.Kind != "namespace_import" {
		return Import{}, false
	}
	imp, ok := ImportOf(d)
	if !ok {
		return Import{}, false
	}
	imp.Name = prop.Text()
	return imp, true
}

func moduleSpecifier(stmt *Node) string {
	src := stmt.Field("source")
	if src == nil {
		return ""
	}
	if frag := src.FirstNamed("string_fragment"); frag != nil {
		return frag.Text()
	}
	return unquote(src.Text())
}

func unquote(s string) string {
	if len(s) >= 2 && strings.ContainsRune(`"'`+"`", rune(s[0])) && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
