// Package syntax turns TypeScript and JavaScript source into owned syntax
// trees and answers the two questions the call-graph builder asks of a
// compiler front end: what does this identifier refer to, and what does
// this export statement export.
package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrUnsupportedLanguage is returned for files with an unknown extension.
var ErrUnsupportedLanguage = errors.New("syntax: unsupported language")

// File is one source file of a program. Files that were skipped have no
// Source and no Root.
type File struct {
	Path     string
	Language string
	Source   []byte
	Root     *Node
	// HasErrors is set when tree-sitter recovered from syntax errors.
	HasErrors bool
}

// Parsed reports whether the file has a syntax tree.
func (f *File) Parsed() bool {
	return f.Root != nil
}

// NewUnparsedFile returns a placeholder for a file that belongs to the
// program but is never parsed.
func NewUnparsedFile(path string) *File {
	lang, _ := LanguageForFile(path)
	return &File{Path: path, Language: lang}
}

// ParseFile parses src as the file at path.
func ParseFile(ctx context.Context, path string, src []byte) (*File, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}
	grammar, _ := GrammarForLanguage(lang)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse %s: %w", path, err)
	}
	defer tree.Close()

	f := &File{Path: path, Language: lang, Source: src}
	root := tree.RootNode()
	f.HasErrors = root.HasError()
	f.Root = convert(root, nil, f)
	return f, nil
}

type span struct {
	start, end uint32
	kind       string
}

func spanOf(n *sitter.Node) span {
	return span{start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
}

func convert(tn *sitter.Node, parent *Node, f *File) *Node {
	sp, ep := tn.StartPoint(), tn.EndPoint()
	n := &Node{
		Kind:      tn.Type(),
		Named:     tn.IsNamed(),
		Start:     tn.StartByte(),
		End:       tn.EndByte(),
		Row:       int(sp.Row),
		Column:    int(sp.Column),
		EndRow:    int(ep.Row),
		EndColumn: int(ep.Column),
		Parent:    parent,
		File:      f,
	}

	count := int(tn.ChildCount())
	if count == 0 {
		return n
	}

	var fieldAt map[span]string
	for _, name := range fieldNames {
		c := tn.ChildByFieldName(name)
		if c == nil {
			continue
		}
		if fieldAt == nil {
			fieldAt = make(map[span]string)
		}
		fieldAt[spanOf(c)] = name
	}

	n.Children = make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		tc := tn.Child(i)
		if tc == nil {
			continue
		}
		child := convert(tc, n, f)
		n.Children = append(n.Children, child)
		if name, ok := fieldAt[spanOf(tc)]; ok {
			if n.fields == nil {
				n.fields = make(map[string]*Node)
			}
			if _, dup := n.fields[name]; !dup {
				n.fields[name] = child
			}
		}
	}
	return n
}
