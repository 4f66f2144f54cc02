package runtime

import (
	"github.com/wasmlite/wasmlite/types"
)

// Extern is anything a module can import: a Func, Global, Memory or
// Table. Externs always belong to exactly one store.
type Extern interface {
	// Kind reports which concrete type this extern is.
	Kind() types.ExternKind

	// externType describes the extern for type checking against
	// imports. Concrete types expose their specific Type() instead.
	externType() types.ExternType
	// location returns the registered wazero module and export name an
	// import can be rewired to. Imports resolve by these two names.
	location() (module, name string)
	// store returns the owning store for cross-store checks.
	store() *Store
}

// checkExternType verifies the extern satisfies the import's declared
// type. Function signatures must match exactly; limits of memories and
// tables must be at least as permissive as required.
func checkExternType(want types.ExternType, got Extern) bool {
	if want.Kind != got.Kind() {
		return false
	}
	g := got.externType()
	switch want.Kind {
	case types.ExternFunc:
		return g.Func != nil && want.Func.Equal(*g.Func)
	case types.ExternGlobal:
		return g.Global != nil && *want.Global == *g.Global
	case types.ExternMemory:
		return g.Memory != nil && limitsSatisfy(want.Memory.Limits, g.Memory.Limits)
	case types.ExternTable:
		return g.Table != nil &&
			want.Table.Element == g.Table.Element &&
			limitsSatisfy(want.Table.Limits, g.Table.Limits)
	}
	return false
}

// limitsSatisfy reports whether actual limits fit a required range:
// the actual minimum must reach the required minimum, and when the
// requirement has a maximum the actual must have one no larger.
func limitsSatisfy(required, actual types.Limits) bool {
	if actual.Min < required.Min {
		return false
	}
	if required.HasMax() && (!actual.HasMax() || actual.Max > required.Max) {
		return false
	}
	return true
}
