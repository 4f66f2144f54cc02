// Package types describes the externally visible shapes of WebAssembly
// items: value types, function signatures, memory/table/global types, and
// the import/export listings derived from a module binary.
//
// Values of these types are plain data. They are produced either by the
// embedder (to create host items) or by decoding a module binary; they
// never own engine resources.
package types
