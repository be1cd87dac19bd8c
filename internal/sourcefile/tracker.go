// Package sourcefile tracks how far each file of a program has been
// walked, and what it exports.
package sourcefile

import (
	"fmt"
	"sort"
)

// Status is the walk state of one file.
type Status int

const (
	NotStarted Status = iota
	InProgress
	Done
	// Skipped is terminal: the file is part of the program but is never
	// walked (vendored packages, declaration files).
	Skipped
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Done:
		return "done"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is the per-file record. D is the exported definition type.
type State[D any] struct {
	Path   string
	Status Status

	exports map[string]D
	names   []string
}

// Export records name. A later export of the same name replaces the
// earlier one.
func (s *State[D]) Export(name string, d D) {
	if s.exports == nil {
		s.exports = make(map[string]D)
	}
	if _, dup := s.exports[name]; !dup {
		s.names = append(s.names, name)
	}
	s.exports[name] = d
}

// Lookup returns the definition exported as name. While the file is still
// in progress the table may be incomplete.
func (s *State[D]) Lookup(name string) (D, bool) {
	d, ok := s.exports[name]
	return d, ok
}

// Exports returns exported names in the order they were first recorded.
func (s *State[D]) Exports() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Walker walks one file. It runs with the file's state already
// InProgress and may re-enter the tracker for other files.
type Walker[D any] func(st *State[D])

// Tracker owns the states of one analysis. It is not safe for concurrent
// use.
type Tracker[D any] struct {
	states map[string]*State[D]
	skip   Matcher
	walk   Walker[D]
}

// NewTracker returns a tracker that consults skip before walking a file.
// skip may be nil.
func NewTracker[D any](skip Matcher, walk Walker[D]) *Tracker[D] {
	return &Tracker[D]{
		states: make(map[string]*State[D]),
		skip:   skip,
		walk:   walk,
	}
}

// Ensure returns the state of path, walking the file first if it has not
// been started. A file that is already in progress is returned as is.
func (t *Tracker[D]) Ensure(path string) *State[D] {
	st := t.state(path)
	if st.Status != NotStarted {
		return st
	}
	if t.skip != nil && t.skip.Skip(path) {
		st.Status = Skipped
		return st
	}
	st.Status = InProgress
	if t.walk != nil {
		t.walk(st)
	}
	st.Status = Done
	return st
}

// Peek returns the state of path without starting a walk.
func (t *Tracker[D]) Peek(path string) *State[D] {
	return t.state(path)
}

// States returns every known state sorted by path.
func (t *Tracker[D]) States() []*State[D] {
	out := make([]*State[D], 0, len(t.states))
	for _, st := range t.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (t *Tracker[D]) state(path string) *State[D] {
	st, ok := t.states[path]
	if !ok {
		st = &State[D]{Path: path}
		t.states[path] = st
	}
	return st
}
