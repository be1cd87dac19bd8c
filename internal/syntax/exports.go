package syntax

// Export is one name exported by an export statement together with the
// declaration it refers to.
type Export struct {
	Name string
	Decl *Node
}

// Unsupported is an export form that is recognized but not followed.
type Unsupported struct {
	Node   *Node
	Reason string
}

// ExportedNames returns the names exported by an export_statement. Forms
// that cannot be followed to a local declaration are returned separately
// so that callers can report them.
func ExportedNames(stmt *Node) ([]Export, []Unsupported) {
	if stmt == nil || stmt.Kind != "export_statement" {
		return nil, nil
	}
	var (
		exports     []Export
		unsupported []Unsupported
	)
	skip := func(n *Node, reason string) {
		unsupported = append(unsupported, Unsupported{Node: n, Reason: reason})
	}

	if stmt.Field("source") != nil {
		if stmt.HasToken("*") || stmt.FirstNamed("namespace_export") != nil {
			skip(stmt, "Namespace exports are not supported.")
		} else {
			skip(stmt, "Re-exports from another module are not supported.")
		}
		return nil, unsupported
	}

	isDefault := stmt.HasToken("default")

	if decl := stmt.Field("declaration"); decl != nil {
		switch decl.Kind {
		case "function_declaration", "generator_function_declaration":
			name := Name(decl)
			if isDefault || name == "" {
				name = "default"
			}
			exports = append(exports, Export{Name: name, Decl: decl})
		case "class_declaration", "abstract_class_declaration":
			skip(decl, "Class exports are not supported.")
		case "lexical_declaration", "variable_declaration":
			for _, d := range decl.NamedChildren() {
				if d.Kind != "variable_declarator" {
					continue
				}
				if n := d.Field("name"); n != nil && n.Kind == "identifier" {
					exports = append(exports, Export{Name: n.Text(), Decl: d})
				}
			}
		}
		return exports, unsupported
	}

	if clause := stmt.FirstNamed("export_clause"); clause != nil {
		for _, spec := range clause.NamedChildren() {
			if spec.Kind != "export_specifier" {
				continue
			}
			local := spec.Field("name")
			if local == nil {
				continue
			}
			exported := local
			if a := spec.Field("alias"); a != nil {
				exported = a
			}
			d := lookup(stmt, local.Text())
			switch {
			case d == nil:
				skip(spec, "No declaration for export.")
			case IsImport(d):
				skip(spec, "Re-exports of imported bindings are not supported.")
			default:
				exports = append(exports, Export{Name: unquote(exported.Text()), Decl: d})
			}
		}
		return exports, unsupported
	}

	// export default <expr>; and export = <expr>;
	value := stmt.Field("value")
	if value == nil && stmt.HasToken("=") {
		if named := stmt.NamedChildren(); len(named) > 0 {
			value = named[len(named)-1]
		}
	}
	if value == nil {
		return nil, nil
	}
	v := Unwrap(value)
	switch {
	case IsFunctionExpression(v):
		exports = append(exports, Export{Name: "default", Decl: v})
	case v.Kind == "identifier":
		d := lookup(stmt, v.Text())
		switch {
		case d == nil:
			skip(v, "No declaration for export.")
		case IsImport(d):
			skip(v, "Re-exports of imported bindings are not supported.")
		default:
			exports = append(exports, Export{Name: "default", Decl: d})
		}
	case v.Kind == "class":
		skip(v, "Class exports are not supported.")
	default:
		skip(v, "Unsupported default export expression.")
	}
	return exports, unsupported
}
