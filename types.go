package nocode

import "github.com/vallerance/no-code/internal/store"

// Row types returned by the QueryBuilder. They alias the store's types, so
// no conversion is needed.

type Store = store.Store
type File = store.File
type Definition = store.Definition
type Block = store.Block
type Call = store.Call
type Callback = store.Callback
type Diagnostic = store.Diagnostic
type Stats = store.Stats
