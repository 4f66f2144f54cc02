// Package engine configures how WebAssembly modules are compiled and
// executed. An Engine carries the settings shared by every store built
// on it: execution strategy, enabled proposals, memory limits, fuel
// metering and the compilation cache.
package engine
