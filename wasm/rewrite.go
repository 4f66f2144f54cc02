package wasm

// RewriteImports replaces each import's module and field name with the
// pair returned by fn. fn sees the original module, name and kind and
// returns where the import should resolve instead. The rewrite is how
// positionally supplied externs and linker definitions are mapped onto
// name-based resolution: the caller registers each definition under a
// unique module name, then points the guest's imports at it.
func (m *Module) RewriteImports(fn func(module, name string, kind byte) (string, string)) {
	for i := range m.Imports {
		imp := &m.Imports[i]
		imp.Module, imp.Name = fn(imp.Module, imp.Name, imp.Desc.Kind)
	}
}
