package syntax

// Program is the set of files considered part of one analysis. It is
// read-only once built.
type Program struct {
	Root  string
	files map[string]*File
	order []*File
}

// NewProgram indexes files by absolute path, keeping their order. Later
// duplicates of a path are ignored.
func NewProgram(root string, files []*File) *Program {
	p := &Program{Root: root, files: make(map[string]*File, len(files))}
	for _, f := range files {
		if _, dup := p.files[f.Path]; dup {
			continue
		}
		p.files[f.Path] = f
		p.order = append(p.order, f)
	}
	return p
}

// File returns the file at path.
func (p *Program) File(path string) (*File, bool) {
	f, ok := p.files[path]
	return f, ok
}

// Files returns every file in input order.
func (p *Program) Files() []*File {
	return p.order
}

// Table returns the path index. Callers must not modify it.
func (p *Program) Table() map[string]*File {
	return p.files
}

// Len is the number of files, parsed or not.
func (p *Program) Len() int {
	return len(p.order)
}
