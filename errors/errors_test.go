package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wasmlite/wasmlite/errors"
)

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *errors.Error
		want string
	}{
		{
			name: "phase and kind only",
			err:  errors.New(errors.PhaseCompile, errors.KindInvalidInput).Build(),
			want: "[compile] invalid_input",
		},
		{
			name: "with subject",
			err:  errors.NotFound(errors.PhaseLink, "env::log"),
			want: "[link] not_found: env::log",
		},
		{
			name: "with subject and detail",
			err: errors.New(errors.PhaseCall, errors.KindTypeMismatch).
				Subject("arg 0").
				Detail("expected i32, got f64").
				Build(),
			want: "[call] type_mismatch: arg 0 - expected i32, got f64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorCauseChain(t *testing.T) {
	cause := fmt.Errorf("bad magic")
	err := errors.Compile("module", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !strings.Contains(err.Error(), "caused by: bad magic") {
		t.Errorf("cause not rendered: %q", err.Error())
	}
}

func TestErrorIsMatching(t *testing.T) {
	err := errors.MissingImport("env", "log")

	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLink}) {
		t.Error("phase wildcard match failed")
	}
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindMissingImport}) {
		t.Error("kind wildcard match failed")
	}
	if stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall}) {
		t.Error("mismatched phase should not match")
	}
}

func TestErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", errors.FuelDisabled())

	var e *errors.Error
	if !stderrors.As(wrapped, &e) {
		t.Fatal("errors.As failed")
	}
	if e.Kind != errors.KindFuelDisabled {
		t.Errorf("kind = %q, want %q", e.Kind, errors.KindFuelDisabled)
	}
}
