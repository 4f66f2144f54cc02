package wat

import (
	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/wasm"
)

// Compile translates WAT source into binary form.
func Compile(source string) ([]byte, error) {
	m, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return m.Encode(), nil
}

// Parse compiles WAT source into the section model without encoding it.
func Parse(source string) (*wasm.Module, error) {
	toks, err := lex(source)
	if err != nil {
		return nil, watErr(err)
	}
	top, err := buildTree(toks)
	if err != nil {
		return nil, watErr(err)
	}
	m, err := parseModule(top)
	if err != nil {
		return nil, watErr(err)
	}
	return m, nil
}

func watErr(err error) error {
	return errs.New(errs.PhaseWat, errs.KindInvalidInput).Cause(err).Build()
}
