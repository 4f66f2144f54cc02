package wat

import (
	"github.com/wasmlite/wasmlite/wasm"
)

// moduleParser assembles a wasm.Module from the (module ...) fields.
// Parsing runs in three passes so forward references work: explicit
// type definitions first, then declarations in source order to lay out
// the index spaces, then code, init expressions and exports.
type moduleParser struct {
	mod *wasm.Module

	typeNames   map[string]uint32
	funcNames   map[string]uint32
	globalNames map[string]uint32
	memNames    map[string]uint32
	tableNames  map[string]uint32
	elemNames   map[string]uint32
	dataNames   map[string]uint32

	numFuncs   uint32
	numGlobals uint32
	numMems    uint32
	numTables  uint32

	definedSeen map[byte]bool

	funcBodies  []pendingFunc
	globalInits []pendingExpr
	deferred    []node // export, start, elem and data fields
}

// pendingFunc is a defined function awaiting body compilation.
type pendingFunc struct {
	n          node
	paramNames []string
	nParams    int
	fields     []node // locals and instructions
}

// pendingExpr is a global init expression awaiting compilation.
type pendingExpr struct {
	globalIdx uint32
	nodes     []node
}

func newModuleParser() *moduleParser {
	return &moduleParser{
		mod:         &wasm.Module{},
		typeNames:   map[string]uint32{},
		funcNames:   map[string]uint32{},
		globalNames: map[string]uint32{},
		memNames:    map[string]uint32{},
		tableNames:  map[string]uint32{},
		elemNames:   map[string]uint32{},
		dataNames:   map[string]uint32{},
		definedSeen: map[byte]bool{},
	}
}

func parseModule(top []node) (*wasm.Module, error) {
	var fields []node
	switch {
	case len(top) == 1 && top[0].head() == "module":
		fields = top[0].list[1:]
		// Skip an optional module identifier.
		if len(fields) > 0 && fields[0].isAtom() && isName(fields[0].text) {
			fields = fields[1:]
		}
	default:
		// Bare fields without the (module ...) wrapper.
		fields = top
	}

	p := newModuleParser()

	for _, f := range fields {
		if f.head() == "type" {
			if err := p.typeField(f); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range fields {
		if err := p.declField(f); err != nil {
			return nil, err
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.mod, nil
}

func isName(s string) bool { return len(s) > 1 && s[0] == '$' }

// typeField handles (type $id? (func (param ...) (result ...))).
func (p *moduleParser) typeField(n node) error {
	fields := n.list[1:]
	if len(fields) > 0 && fields[0].isAtom() && isName(fields[0].text) {
		if _, dup := p.typeNames[fields[0].text]; dup {
			return n.errf("duplicate type name %s", fields[0].text)
		}
		p.typeNames[fields[0].text] = uint32(len(p.mod.Types))
		fields = fields[1:]
	}
	if len(fields) != 1 || fields[0].head() != "func" {
		return n.errf("type field must contain a (func ...) signature")
	}
	ft, err := p.parseFuncSig(fields[0].list[1:])
	if err != nil {
		return err
	}
	p.mod.Types = append(p.mod.Types, ft)
	return nil
}

// parseFuncSig reads (param ...)* (result ...)* lists into a signature.
func (p *moduleParser) parseFuncSig(fields []node) (wasm.FuncType, error) {
	var ft wasm.FuncType
	for _, f := range fields {
		switch f.head() {
		case "param":
			types, _, err := parseValTypeList(f)
			if err != nil {
				return ft, err
			}
			ft.Params = append(ft.Params, types...)
		case "result":
			types, _, err := parseValTypeList(f)
			if err != nil {
				return ft, err
			}
			ft.Results = append(ft.Results, types...)
		default:
			return ft, f.errf("unexpected %q in signature", f.head())
		}
	}
	return ft, nil
}

// parseValTypeList reads the types (and optional single name) of one
// (param ...) or (result ...) list.
func parseValTypeList(n node) ([]byte, string, error) {
	items := n.list[1:]
	name := ""
	if len(items) > 0 && items[0].isAtom() && isName(items[0].text) {
		if n.head() != "param" && n.head() != "local" {
			return nil, "", n.errf("%s cannot be named", n.head())
		}
		name = items[0].text
		items = items[1:]
		if len(items) != 1 {
			return nil, "", n.errf("named %s takes exactly one type", n.head())
		}
	}
	var types []byte
	for _, it := range items {
		vt, err := valType(&it)
		if err != nil {
			return nil, "", err
		}
		types = append(types, vt)
	}
	return types, name, nil
}

func valType(n *node) (byte, error) {
	if !n.isAtom() {
		return 0, n.errf("expected a value type")
	}
	switch n.text {
	case "i32":
		return wasm.ValI32, nil
	case "i64":
		return wasm.ValI64, nil
	case "f32":
		return wasm.ValF32, nil
	case "f64":
		return wasm.ValF64, nil
	case "v128":
		return wasm.ValV128, nil
	case "funcref":
		return wasm.ValFuncRef, nil
	case "externref":
		return wasm.ValExternRef, nil
	}
	return 0, n.errf("unknown value type %q", n.text)
}

// declField lays out the index spaces in source order.
func (p *moduleParser) declField(n node) error {
	switch n.head() {
	case "type":
		return nil // handled in the first pass
	case "import":
		return p.importField(n)
	case "func":
		return p.funcField(n)
	case "global":
		return p.globalField(n)
	case "memory":
		return p.memoryField(n)
	case "table":
		return p.tableField(n)
	case "export", "start", "elem", "data":
		p.deferred = append(p.deferred, n)
		return nil
	case "":
		return n.errf("expected a module field")
	default:
		return n.errf("unknown module field %q", n.head())
	}
}

func (p *moduleParser) addImport(n node, imp wasm.Import) error {
	if p.definedSeen[imp.Desc.Kind] {
		return n.errf("imports must precede definitions")
	}
	p.mod.Imports = append(p.mod.Imports, imp)
	return nil
}

// importField handles (import "mod" "name" desc).
func (p *moduleParser) importField(n node) error {
	f := n.list[1:]
	if len(f) != 3 || !f[0].isString() || !f[1].isString() || !f[2].isList() {
		return n.errf("import needs two names and a descriptor")
	}
	mod, name, desc := f[0].text, f[1].text, f[2]
	fields := desc.list[1:]

	// Optional identifier inside the descriptor.
	var id string
	if len(fields) > 0 && fields[0].isAtom() && isName(fields[0].text) {
		id = fields[0].text
		fields = fields[1:]
	}

	switch desc.head() {
	case "func":
		typeIdx, _, rest, err := p.parseTypeUse(desc, fields)
		if err != nil {
			return err
		}
		if len(rest) != 0 {
			return desc.errf("imported function cannot have a body")
		}
		if err := p.registerName(p.funcNames, id, p.numFuncs, &desc); err != nil {
			return err
		}
		p.numFuncs++
		return p.addImport(n, wasm.Import{Module: mod, Name: name,
			Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: typeIdx}})
	case "global":
		gt, err := parseGlobalType(fields, &desc)
		if err != nil {
			return err
		}
		if err := p.registerName(p.globalNames, id, p.numGlobals, &desc); err != nil {
			return err
		}
		p.numGlobals++
		return p.addImport(n, wasm.Import{Module: mod, Name: name,
			Desc: wasm.ImportDesc{Kind: wasm.KindGlobal, Global: &gt}})
	case "memory":
		lim, err := parseLimits(fields, &desc)
		if err != nil {
			return err
		}
		if err := p.registerName(p.memNames, id, p.numMems, &desc); err != nil {
			return err
		}
		p.numMems++
		return p.addImport(n, wasm.Import{Module: mod, Name: name,
			Desc: wasm.ImportDesc{Kind: wasm.KindMemory, Memory: &wasm.MemoryType{Limits: lim}}})
	case "table":
		tt, err := parseTableType(fields, &desc)
		if err != nil {
			return err
		}
		if err := p.registerName(p.tableNames, id, p.numTables, &desc); err != nil {
			return err
		}
		p.numTables++
		return p.addImport(n, wasm.Import{Module: mod, Name: name,
			Desc: wasm.ImportDesc{Kind: wasm.KindTable, Table: &tt}})
	}
	return desc.errf("unknown import descriptor %q", desc.head())
}

func (p *moduleParser) registerName(space map[string]uint32, id string, idx uint32, n *node) error {
	if id == "" {
		return nil
	}
	if _, dup := space[id]; dup {
		return n.errf("duplicate name %s", id)
	}
	space[id] = idx
	return nil
}

// inlineExterns strips the optional identifier and any inline
// (export "name") abbreviations off a declaration, recording exports
// against idx. It returns the remaining fields and the inline
// (import "m" "n") node if one follows.
func (p *moduleParser) inlineExterns(fields []node, idx uint32, kind byte, space map[string]uint32, parent *node) ([]node, *node, error) {
	if len(fields) > 0 && fields[0].isAtom() && isName(fields[0].text) {
		if err := p.registerName(space, fields[0].text, idx, parent); err != nil {
			return nil, nil, err
		}
		fields = fields[1:]
	}
	for len(fields) > 0 && fields[0].head() == "export" {
		e := fields[0]
		if len(e.list) != 2 || !e.list[1].isString() {
			return nil, nil, e.errf("inline export needs a single name")
		}
		p.mod.Exports = append(p.mod.Exports, wasm.Export{Name: e.list[1].text, Kind: kind, Idx: idx})
		fields = fields[1:]
	}
	if len(fields) > 0 && fields[0].head() == "import" {
		imp := fields[0]
		if len(imp.list) != 3 || !imp.list[1].isString() || !imp.list[2].isString() {
			return nil, nil, imp.errf("inline import needs two names")
		}
		return fields[1:], &imp, nil
	}
	return fields, nil, nil
}

func (p *moduleParser) funcField(n node) error {
	idx := p.numFuncs
	fields, imp, err := p.inlineExterns(n.list[1:], idx, wasm.KindFunc, p.funcNames, &n)
	if err != nil {
		return err
	}
	typeIdx, paramNames, rest, err := p.parseTypeUse(n, fields)
	if err != nil {
		return err
	}
	p.numFuncs++
	if imp != nil {
		if len(rest) != 0 {
			return n.errf("imported function cannot have a body")
		}
		return p.addImport(n, wasm.Import{Module: imp.list[1].text, Name: imp.list[2].text,
			Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: typeIdx}})
	}
	p.definedSeen[wasm.KindFunc] = true
	p.mod.Funcs = append(p.mod.Funcs, typeIdx)
	p.funcBodies = append(p.funcBodies, pendingFunc{
		n:          n,
		paramNames: paramNames,
		nParams:    len(p.mod.Types[typeIdx].Params),
		fields:     rest,
	})
	return nil
}

// parseTypeUse reads an optional (type ...) reference plus inline
// (param ...)/(result ...) lists, interning anonymous signatures. It
// returns the type index, the param names (aligned to the signature)
// and the fields that follow the typeuse.
func (p *moduleParser) parseTypeUse(parent node, fields []node) (uint32, []string, []node, error) {
	var explicit *uint32
	if len(fields) > 0 && fields[0].head() == "type" {
		t := fields[0]
		if len(t.list) != 2 {
			return 0, nil, nil, t.errf("type reference needs one index")
		}
		idx, err := p.resolveIdx(p.typeNames, &t.list[1], "type")
		if err != nil {
			return 0, nil, nil, err
		}
		if int(idx) >= len(p.mod.Types) {
			return 0, nil, nil, t.errf("type index %d out of range", idx)
		}
		explicit = &idx
		fields = fields[1:]
	}

	var sig wasm.FuncType
	var names []string
	sawInline := false
	for len(fields) > 0 && fields[0].head() == "param" {
		sawInline = true
		types, name, err := parseValTypeList(fields[0])
		if err != nil {
			return 0, nil, nil, err
		}
		if name != "" {
			for len(names) < len(sig.Params) {
				names = append(names, "")
			}
			names = append(names, name)
		}
		sig.Params = append(sig.Params, types...)
		fields = fields[1:]
	}
	for len(fields) > 0 && fields[0].head() == "result" {
		sawInline = true
		types, _, err := parseValTypeList(fields[0])
		if err != nil {
			return 0, nil, nil, err
		}
		sig.Results = append(sig.Results, types...)
		fields = fields[1:]
	}
	for len(names) < len(sig.Params) {
		names = append(names, "")
	}

	if explicit != nil {
		if sawInline && !p.mod.Types[*explicit].Equal(sig) {
			return 0, nil, nil, parent.errf("inline signature disagrees with type %d", *explicit)
		}
		if !sawInline {
			names = make([]string, len(p.mod.Types[*explicit].Params))
		}
		return *explicit, names, fields, nil
	}
	return p.mod.AddType(sig), names, fields, nil
}

func parseGlobalType(fields []node, parent *node) (wasm.GlobalType, error) {
	if len(fields) != 1 {
		return wasm.GlobalType{}, parent.errf("global type must be a value type or (mut t)")
	}
	f := fields[0]
	if f.head() == "mut" {
		if len(f.list) != 2 {
			return wasm.GlobalType{}, f.errf("(mut t) takes one type")
		}
		vt, err := valType(&f.list[1])
		if err != nil {
			return wasm.GlobalType{}, err
		}
		return wasm.GlobalType{ValType: vt, Mutable: true}, nil
	}
	vt, err := valType(&f)
	if err != nil {
		return wasm.GlobalType{}, err
	}
	return wasm.GlobalType{ValType: vt}, nil
}

func parseLimits(fields []node, parent *node) (wasm.Limits, error) {
	if len(fields) == 0 || !fields[0].isAtom() {
		return wasm.Limits{}, parent.errf("expected limits")
	}
	min, ok := parseIndex(fields[0].text)
	if !ok {
		return wasm.Limits{}, fields[0].errf("invalid limit %q", fields[0].text)
	}
	lim := wasm.Limits{Min: uint64(min)}
	if len(fields) > 1 && fields[1].isAtom() {
		if max, ok := parseIndex(fields[1].text); ok {
			m := uint64(max)
			lim.Max = &m
		}
	}
	return lim, nil
}

func parseTableType(fields []node, parent *node) (wasm.TableType, error) {
	if len(fields) < 2 {
		return wasm.TableType{}, parent.errf("table needs limits and an element type")
	}
	lim, err := parseLimits(fields[:len(fields)-1], parent)
	if err != nil {
		return wasm.TableType{}, err
	}
	elem := fields[len(fields)-1]
	vt, err := valType(&elem)
	if err != nil {
		return wasm.TableType{}, err
	}
	if vt != wasm.ValFuncRef && vt != wasm.ValExternRef {
		return wasm.TableType{}, elem.errf("table element type must be a reference type")
	}
	return wasm.TableType{ElemType: vt, Limits: lim}, nil
}

func (p *moduleParser) globalField(n node) error {
	idx := p.numGlobals
	fields, imp, err := p.inlineExterns(n.list[1:], idx, wasm.KindGlobal, p.globalNames, &n)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return n.errf("global needs a type")
	}
	gt, err := parseGlobalType(fields[:1], &n)
	if err != nil {
		return err
	}
	p.numGlobals++
	if imp != nil {
		if len(fields) != 1 {
			return n.errf("imported global cannot have an initializer")
		}
		return p.addImport(n, wasm.Import{Module: imp.list[1].text, Name: imp.list[2].text,
			Desc: wasm.ImportDesc{Kind: wasm.KindGlobal, Global: &gt}})
	}
	p.definedSeen[wasm.KindGlobal] = true
	p.mod.Globals = append(p.mod.Globals, wasm.Global{Type: gt})
	p.globalInits = append(p.globalInits, pendingExpr{
		globalIdx: uint32(len(p.mod.Globals) - 1),
		nodes:     fields[1:],
	})
	return nil
}

func (p *moduleParser) memoryField(n node) error {
	idx := p.numMems
	fields, imp, err := p.inlineExterns(n.list[1:], idx, wasm.KindMemory, p.memNames, &n)
	if err != nil {
		return err
	}
	lim, err := parseLimits(fields, &n)
	if err != nil {
		return err
	}
	p.numMems++
	if imp != nil {
		return p.addImport(n, wasm.Import{Module: imp.list[1].text, Name: imp.list[2].text,
			Desc: wasm.ImportDesc{Kind: wasm.KindMemory, Memory: &wasm.MemoryType{Limits: lim}}})
	}
	p.definedSeen[wasm.KindMemory] = true
	p.mod.Memories = append(p.mod.Memories, wasm.MemoryType{Limits: lim})
	return nil
}

func (p *moduleParser) tableField(n node) error {
	idx := p.numTables
	fields, imp, err := p.inlineExterns(n.list[1:], idx, wasm.KindTable, p.tableNames, &n)
	if err != nil {
		return err
	}
	tt, err := parseTableType(fields, &n)
	if err != nil {
		return err
	}
	p.numTables++
	if imp != nil {
		return p.addImport(n, wasm.Import{Module: imp.list[1].text, Name: imp.list[2].text,
			Desc: wasm.ImportDesc{Kind: wasm.KindTable, Table: &tt}})
	}
	p.definedSeen[wasm.KindTable] = true
	p.mod.Tables = append(p.mod.Tables, tt)
	return nil
}

// finish compiles bodies and init expressions and resolves the
// deferred fields, now that every index space is complete.
func (p *moduleParser) finish() error {
	for i := range p.funcBodies {
		body, err := p.compileFunc(&p.funcBodies[i])
		if err != nil {
			return err
		}
		p.mod.Code = append(p.mod.Code, body)
	}
	for _, g := range p.globalInits {
		init, err := p.compileConstExpr(g.nodes)
		if err != nil {
			return err
		}
		p.mod.Globals[g.globalIdx].Init = init
	}
	for _, n := range p.deferred {
		var err error
		switch n.head() {
		case "export":
			err = p.exportField(n)
		case "start":
			err = p.startField(n)
		case "elem":
			err = p.elemField(n)
		case "data":
			err = p.dataField(n)
		}
		if err != nil {
			return err
		}
	}
	if len(p.mod.Data) > 0 {
		n := uint32(len(p.mod.Data))
		p.mod.DataCount = &n
	}
	return nil
}

func (p *moduleParser) exportField(n node) error {
	f := n.list[1:]
	if len(f) != 2 || !f[0].isString() || !f[1].isList() || len(f[1].list) != 2 {
		return n.errf("export needs a name and a descriptor")
	}
	name, desc := f[0].text, f[1]
	var kind byte
	var space map[string]uint32
	switch desc.head() {
	case "func":
		kind, space = wasm.KindFunc, p.funcNames
	case "global":
		kind, space = wasm.KindGlobal, p.globalNames
	case "memory":
		kind, space = wasm.KindMemory, p.memNames
	case "table":
		kind, space = wasm.KindTable, p.tableNames
	default:
		return desc.errf("unknown export descriptor %q", desc.head())
	}
	idx, err := p.resolveIdx(space, &desc.list[1], desc.head())
	if err != nil {
		return err
	}
	p.mod.Exports = append(p.mod.Exports, wasm.Export{Name: name, Kind: kind, Idx: idx})
	return nil
}

func (p *moduleParser) startField(n node) error {
	if len(n.list) != 2 {
		return n.errf("start needs a function index")
	}
	idx, err := p.resolveIdx(p.funcNames, &n.list[1], "func")
	if err != nil {
		return err
	}
	p.mod.Start = &idx
	return nil
}

// resolveIdx maps a numeric index or $name atom to its index.
func (p *moduleParser) resolveIdx(space map[string]uint32, n *node, what string) (uint32, error) {
	if !n.isAtom() {
		return 0, n.errf("expected a %s index", what)
	}
	if isName(n.text) {
		idx, ok := space[n.text]
		if !ok {
			return 0, n.errf("unknown %s %s", what, n.text)
		}
		return idx, nil
	}
	idx, ok := parseIndex(n.text)
	if !ok {
		return 0, n.errf("invalid %s index %q", what, n.text)
	}
	return idx, nil
}

// compileConstExpr compiles a constant expression (global initializers,
// segment offsets) and appends the terminal end.
func (p *moduleParser) compileConstExpr(nodes []node) ([]byte, error) {
	c := newFuncCompiler(p, nil, 0)
	if err := c.instrs(nodes); err != nil {
		return nil, err
	}
	c.buf.WriteByte(wasm.OpEnd)
	return c.buf.Bytes(), nil
}

func (p *moduleParser) elemField(n node) error {
	fields := n.list[1:]
	if len(fields) > 0 && fields[0].isAtom() && isName(fields[0].text) {
		if err := p.registerName(p.elemNames, fields[0].text, uint32(len(p.mod.Elements)), &n); err != nil {
			return err
		}
		fields = fields[1:]
	}

	// Declarative segment: (elem declare func $f ...)
	if len(fields) > 0 && fields[0].isAtom() && fields[0].text == "declare" {
		idxs, err := p.elemFuncList(fields[1:], &n)
		if err != nil {
			return err
		}
		p.mod.Elements = append(p.mod.Elements, wasm.Element{Flags: 3, ElemKind: 0, FuncIdxs: idxs})
		return nil
	}

	tableIdx := uint32(0)
	if len(fields) > 0 && fields[0].head() == "table" {
		idx, err := p.resolveIdx(p.tableNames, &fields[0].list[1], "table")
		if err != nil {
			return err
		}
		tableIdx = idx
		fields = fields[1:]
	}

	// Active segment when an offset expression follows.
	if len(fields) > 0 && fields[0].isList() && fields[0].head() != "func" {
		offNodes := fields[0].list
		if fields[0].head() == "offset" {
			offNodes = fields[0].list[1:]
		} else {
			offNodes = []node{fields[0]}
		}
		offset, err := p.compileConstExpr(offNodes)
		if err != nil {
			return err
		}
		idxs, err := p.elemFuncList(fields[1:], &n)
		if err != nil {
			return err
		}
		e := wasm.Element{TableIdx: tableIdx, Offset: offset, FuncIdxs: idxs}
		if tableIdx != 0 {
			e.Flags = 2
		}
		p.mod.Elements = append(p.mod.Elements, e)
		return nil
	}

	// Passive segment.
	idxs, err := p.elemFuncList(fields, &n)
	if err != nil {
		return err
	}
	p.mod.Elements = append(p.mod.Elements, wasm.Element{Flags: 1, ElemKind: 0, FuncIdxs: idxs})
	return nil
}

// elemFuncList reads the function indices of an element segment,
// accepting both "func $a $b" and the bare "$a $b" abbreviation.
func (p *moduleParser) elemFuncList(fields []node, parent *node) ([]uint32, error) {
	if len(fields) > 0 && fields[0].isAtom() && fields[0].text == "func" {
		fields = fields[1:]
	}
	if len(fields) > 0 && fields[0].isAtom() && fields[0].text == "funcref" {
		// (elem ... funcref (ref.func $f)*) expression form; only
		// ref.func items are representable here.
		fields = fields[1:]
	}
	var idxs []uint32
	for i := range fields {
		f := &fields[i]
		if f.head() == "ref.func" && len(f.list) == 2 {
			f = &f.list[1]
		}
		idx, err := p.resolveIdx(p.funcNames, f, "func")
		if err != nil {
			return nil, err
		}
		idxs = append(idxs, idx)
	}
	return idxs, nil
}

func (p *moduleParser) dataField(n node) error {
	fields := n.list[1:]
	if len(fields) > 0 && fields[0].isAtom() && isName(fields[0].text) {
		if err := p.registerName(p.dataNames, fields[0].text, uint32(len(p.mod.Data)), &n); err != nil {
			return err
		}
		fields = fields[1:]
	}

	memIdx := uint32(0)
	if len(fields) > 0 && fields[0].head() == "memory" {
		idx, err := p.resolveIdx(p.memNames, &fields[0].list[1], "memory")
		if err != nil {
			return err
		}
		memIdx = idx
		fields = fields[1:]
	}

	seg := wasm.DataSegment{MemIdx: memIdx}
	if len(fields) > 0 && fields[0].isList() {
		offNodes := []node{fields[0]}
		if fields[0].head() == "offset" {
			offNodes = fields[0].list[1:]
		}
		offset, err := p.compileConstExpr(offNodes)
		if err != nil {
			return err
		}
		seg.Offset = offset
		if memIdx != 0 {
			seg.Flags = 2
		}
		fields = fields[1:]
	} else {
		seg.Flags = 1 // passive
	}

	for _, f := range fields {
		if !f.isString() {
			return f.errf("data segment contents must be strings")
		}
		seg.Init = append(seg.Init, f.text...)
	}
	p.mod.Data = append(p.mod.Data, seg)
	return nil
}
