// Package wasm reads and writes core WebAssembly binaries.
//
// The runtime layer uses it for three things the engine does not expose:
//
//   - decoding import/export listings for type introspection
//   - rewriting import entries so instantiation can resolve them against
//     generated host and synthetic modules
//   - the fuel instrumentation transform, which injects a fuel global and
//     charge/check sequences into function bodies
//
// The decoder preserves enough structure to re-encode a module byte-for-
// byte equivalent in meaning; function bodies are kept as raw bytecode and
// only walked by the instruction scanner when a transform needs them.
package wasm
