// Package runtime is the embedding API: stores, modules, instances,
// linkers and the host-visible value and extern types.
//
// A Store owns all runtime state and is created from an engine.Engine.
// Modules compile once per engine and instantiate per store, either
// directly with positional imports (NewInstance) or by name through a
// Linker. Host functions, globals, memories and tables are created
// against a store and linked into instances like any other extern.
//
// Guest failures surface as *Trap with symbolic frames; embedding
// failures surface as the structured *errors.Error.
package runtime
