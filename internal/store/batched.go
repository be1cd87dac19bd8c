package store

import "sync"

// Batch buffers one complete graph in memory so it can be committed in a
// single transaction. Rows refer to each other by key; ids are assigned
// at commit time.
//
// Thread safety: the mutex protects appends, so a batch may be filled from
// several goroutines. Row order within each slice is preserved.
type Batch struct {
	mu sync.Mutex

	Files       []File
	Definitions []Definition
	Blocks      []Block
	Calls       []Call
	Callbacks   []Callback
	Diagnostics []Diagnostic
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) AddFile(f File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Files = append(b.Files, f)
}

func (b *Batch) AddDefinition(d Definition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Definitions = append(b.Definitions, d)
}

func (b *Batch) AddBlock(bl Block) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Blocks = append(b.Blocks, bl)
}

func (b *Batch) AddCall(c Call) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls = append(b.Calls, c)
}

func (b *Batch) AddCallback(cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Callbacks = append(b.Callbacks, cb)
}

func (b *Batch) AddDiagnostic(d Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Diagnostics = append(b.Diagnostics, d)
}
