// Package wat compiles WebAssembly Text format into binary modules.
//
// It exists so modules can be written inline in tests and examples and
// fed to the same compilation pipeline as binary input:
//
//	bin, err := wat.Compile(`(module
//		(func (export "add") (param i32 i32) (result i32)
//			(i32.add (local.get 0) (local.get 1)))
//	)`)
//
// Both flat and folded instruction forms are accepted, along with
// symbolic $names for every index space, inline import/export
// abbreviations, if/then/else, named block labels, memory/data and
// table/elem segments, and line (;;) plus nestable (; ;) comments.
// The instruction set covers the core spec including sign extension,
// saturating truncation, bulk memory, and reference types.
//
// Not supported: v128 instructions, threads/atomics, and exception
// handling.
package wat
