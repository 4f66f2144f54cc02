// Package wasmlite is a safe embedding API for running WebAssembly
// modules in Go, built on the wazero engine.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	wasmlite/            Root package (documentation only)
//	├── engine/          Engine configuration over wazero
//	├── runtime/         Stores, modules, instances, linking, values
//	├── types/           Value, function, memory, table, global types
//	├── wasm/            Core wasm binary manipulation primitives
//	├── wat/             WAT text format to binary compiler
//	├── wasi/            WASI command environment configuration
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Compile and run a module:
//
//	eng := engine.New()
//	defer eng.Close(ctx)
//
//	store := runtime.NewStore(ctx, eng)
//	defer store.Close(ctx)
//
//	mod, err := runtime.Compile(ctx, eng, wasmOrWat)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	inst, err := runtime.NewInstance(ctx, store, mod, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	add, _ := inst.Func("add")
//	results, err := add.Call(ctx, runtime.ValI32(1), runtime.ValI32(2))
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use. A Store and
// everything created in it belong to a single goroutine, or access
// must be synchronized.
package wasmlite
