package runtime

import (
	"context"

	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasm"
)

// Table is a table of reference values. Tables can be created by the
// host and linked into instances, but the underlying engine exposes no
// element access, so Get, Set, Grow and Fill report unsupported.
type Table struct {
	s       *Store
	modName string
	name    string
	ty      types.TableType
}

// NewTable creates a host-defined table with the given element type
// and limits.
func NewTable(ctx context.Context, s *Store, ty types.TableType) (*Table, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if k := ty.Element.Kind(); k != types.KindFuncRef && k != types.KindExternRef {
		return nil, errs.TypeMismatch(errs.PhaseLink, "table",
			ty.Element.String()+" is not a reference type")
	}
	bin := wasm.SynthTable("tbl", wasm.TableType{
		ElemType: byteFromValKind(ty.Element.Kind()),
		Limits:   limitsToWasm(ty.Limits),
	})
	modName := s.uniqueName("table")
	if _, err := s.instantiateSynthetic(ctx, bin, modName); err != nil {
		return nil, err
	}
	return &Table{s: s, modName: modName, name: "tbl", ty: ty}, nil
}

func tableFromExport(s *Store, ty types.TableType, modName, name string) *Table {
	return &Table{s: s, modName: modName, name: name, ty: ty}
}

// Type returns the table's declared type.
func (t *Table) Type() types.TableType { return t.ty }

// Kind implements Extern.
func (t *Table) Kind() types.ExternKind { return types.ExternTable }

func (t *Table) externType() types.ExternType { return types.TableExtern(t.ty) }
func (t *Table) location() (string, string)   { return t.modName, t.name }
func (t *Table) store() *Store                { return t.s }

// Size returns the declared minimum. The live size is not observable
// from the host.
func (t *Table) Size() uint32 { return t.ty.Limits.Min }

// Get reports unsupported: table elements are not accessible from the
// host.
func (t *Table) Get(idx uint32) (Val, error) {
	return Val{}, errs.Unsupported(errs.PhaseStore, "table element access from the host")
}

// Set reports unsupported: table elements are not accessible from the
// host.
func (t *Table) Set(idx uint32, v Val) error {
	return errs.Unsupported(errs.PhaseStore, "table element access from the host")
}

// Grow reports unsupported: tables can only grow from guest code.
func (t *Table) Grow(delta uint32, init Val) (uint32, error) {
	return 0, errs.Unsupported(errs.PhaseStore, "table growth from the host")
}

// Fill reports unsupported: table elements are not accessible from the
// host.
func (t *Table) Fill(idx uint32, v Val, count uint32) error {
	return errs.Unsupported(errs.PhaseStore, "table fill from the host")
}
