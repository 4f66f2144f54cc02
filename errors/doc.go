// Package errors provides the structured error type used across wasmlite.
//
// Errors carry a Phase (which stage of the embedding pipeline failed) and a
// Kind (error category), plus optional detail and a wrapped cause. All
// errors work with the standard errors.Is/As machinery.
//
// Convenience constructors cover the common patterns:
//
//	err := errors.Compile("module", fmt.Errorf("bad magic"))
//	err := errors.NotFound(errors.PhaseLink, "env.log")
package errors
