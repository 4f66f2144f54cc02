package wat

// immKind tells the instruction compiler what immediates an opcode
// takes and which index space names resolve against.
type immKind int

const (
	immNone immKind = iota
	immLabel
	immBrTable
	immFunc
	immLocal
	immGlobal
	immTable
	immCallIndirect
	immMemIdx // memory.size/grow take a reserved memory index byte
	immMemarg
	immI32
	immI64
	immF32
	immF64
	immSelect
	immRefNull

	// 0xfc-prefixed immediates
	immDataIdxMem // memory.init: data index then memory byte
	immDataIdx    // data.drop
	immTwoZeros   // memory.copy
	immOneZero    // memory.fill
	immElemTable  // table.init: elem index then table index
	immElemIdx    // elem.drop
	immTablePair  // table.copy: dst then src
	immTableIdx   // table.grow, table.size, table.fill
)

type opInfo struct {
	code  byte
	imm   immKind
	align uint32 // log2 natural alignment, memarg ops only
}

type miscInfo struct {
	sub uint32
	imm immKind
}

var plainOps = map[string]opInfo{
	"unreachable": {code: 0x00},
	"nop":         {code: 0x01},
	"br":          {code: 0x0c, imm: immLabel},
	"br_if":       {code: 0x0d, imm: immLabel},
	"br_table":    {code: 0x0e, imm: immBrTable},
	"return":      {code: 0x0f},
	"call":        {code: 0x10, imm: immFunc},
	"call_indirect": {
		code: 0x11, imm: immCallIndirect,
	},
	"return_call":          {code: 0x12, imm: immFunc},
	"return_call_indirect": {code: 0x13, imm: immCallIndirect},

	"drop":   {code: 0x1a},
	"select": {code: 0x1b, imm: immSelect},

	"local.get":  {code: 0x20, imm: immLocal},
	"local.set":  {code: 0x21, imm: immLocal},
	"local.tee":  {code: 0x22, imm: immLocal},
	"global.get": {code: 0x23, imm: immGlobal},
	"global.set": {code: 0x24, imm: immGlobal},
	"table.get":  {code: 0x25, imm: immTable},
	"table.set":  {code: 0x26, imm: immTable},

	"i32.load":     {code: 0x28, imm: immMemarg, align: 2},
	"i64.load":     {code: 0x29, imm: immMemarg, align: 3},
	"f32.load":     {code: 0x2a, imm: immMemarg, align: 2},
	"f64.load":     {code: 0x2b, imm: immMemarg, align: 3},
	"i32.load8_s":  {code: 0x2c, imm: immMemarg, align: 0},
	"i32.load8_u":  {code: 0x2d, imm: immMemarg, align: 0},
	"i32.load16_s": {code: 0x2e, imm: immMemarg, align: 1},
	"i32.load16_u": {code: 0x2f, imm: immMemarg, align: 1},
	"i64.load8_s":  {code: 0x30, imm: immMemarg, align: 0},
	"i64.load8_u":  {code: 0x31, imm: immMemarg, align: 0},
	"i64.load16_s": {code: 0x32, imm: immMemarg, align: 1},
	"i64.load16_u": {code: 0x33, imm: immMemarg, align: 1},
	"i64.load32_s": {code: 0x34, imm: immMemarg, align: 2},
	"i64.load32_u": {code: 0x35, imm: immMemarg, align: 2},
	"i32.store":    {code: 0x36, imm: immMemarg, align: 2},
	"i64.store":    {code: 0x37, imm: immMemarg, align: 3},
	"f32.store":    {code: 0x38, imm: immMemarg, align: 2},
	"f64.store":    {code: 0x39, imm: immMemarg, align: 3},
	"i32.store8":   {code: 0x3a, imm: immMemarg, align: 0},
	"i32.store16":  {code: 0x3b, imm: immMemarg, align: 1},
	"i64.store8":   {code: 0x3c, imm: immMemarg, align: 0},
	"i64.store16":  {code: 0x3d, imm: immMemarg, align: 1},
	"i64.store32":  {code: 0x3e, imm: immMemarg, align: 2},
	"memory.size":  {code: 0x3f, imm: immMemIdx},
	"memory.grow":  {code: 0x40, imm: immMemIdx},

	"i32.const": {code: 0x41, imm: immI32},
	"i64.const": {code: 0x42, imm: immI64},
	"f32.const": {code: 0x43, imm: immF32},
	"f64.const": {code: 0x44, imm: immF64},

	"i32.eqz":  {code: 0x45},
	"i32.eq":   {code: 0x46},
	"i32.ne":   {code: 0x47},
	"i32.lt_s": {code: 0x48},
	"i32.lt_u": {code: 0x49},
	"i32.gt_s": {code: 0x4a},
	"i32.gt_u": {code: 0x4b},
	"i32.le_s": {code: 0x4c},
	"i32.le_u": {code: 0x4d},
	"i32.ge_s": {code: 0x4e},
	"i32.ge_u": {code: 0x4f},

	"i64.eqz":  {code: 0x50},
	"i64.eq":   {code: 0x51},
	"i64.ne":   {code: 0x52},
	"i64.lt_s": {code: 0x53},
	"i64.lt_u": {code: 0x54},
	"i64.gt_s": {code: 0x55},
	"i64.gt_u": {code: 0x56},
	"i64.le_s": {code: 0x57},
	"i64.le_u": {code: 0x58},
	"i64.ge_s": {code: 0x59},
	"i64.ge_u": {code: 0x5a},

	"f32.eq": {code: 0x5b},
	"f32.ne": {code: 0x5c},
	"f32.lt": {code: 0x5d},
	"f32.gt": {code: 0x5e},
	"f32.le": {code: 0x5f},
	"f32.ge": {code: 0x60},

	"f64.eq": {code: 0x61},
	"f64.ne": {code: 0x62},
	"f64.lt": {code: 0x63},
	"f64.gt": {code: 0x64},
	"f64.le": {code: 0x65},
	"f64.ge": {code: 0x66},

	"i32.clz":    {code: 0x67},
	"i32.ctz":    {code: 0x68},
	"i32.popcnt": {code: 0x69},
	"i32.add":    {code: 0x6a},
	"i32.sub":    {code: 0x6b},
	"i32.mul":    {code: 0x6c},
	"i32.div_s":  {code: 0x6d},
	"i32.div_u":  {code: 0x6e},
	"i32.rem_s":  {code: 0x6f},
	"i32.rem_u":  {code: 0x70},
	"i32.and":    {code: 0x71},
	"i32.or":     {code: 0x72},
	"i32.xor":    {code: 0x73},
	"i32.shl":    {code: 0x74},
	"i32.shr_s":  {code: 0x75},
	"i32.shr_u":  {code: 0x76},
	"i32.rotl":   {code: 0x77},
	"i32.rotr":   {code: 0x78},

	"i64.clz":    {code: 0x79},
	"i64.ctz":    {code: 0x7a},
	"i64.popcnt": {code: 0x7b},
	"i64.add":    {code: 0x7c},
	"i64.sub":    {code: 0x7d},
	"i64.mul":    {code: 0x7e},
	"i64.div_s":  {code: 0x7f},
	"i64.div_u":  {code: 0x80},
	"i64.rem_s":  {code: 0x81},
	"i64.rem_u":  {code: 0x82},
	"i64.and":    {code: 0x83},
	"i64.or":     {code: 0x84},
	"i64.xor":    {code: 0x85},
	"i64.shl":    {code: 0x86},
	"i64.shr_s":  {code: 0x87},
	"i64.shr_u":  {code: 0x88},
	"i64.rotl":   {code: 0x89},
	"i64.rotr":   {code: 0x8a},

	"f32.abs":      {code: 0x8b},
	"f32.neg":      {code: 0x8c},
	"f32.ceil":     {code: 0x8d},
	"f32.floor":    {code: 0x8e},
	"f32.trunc":    {code: 0x8f},
	"f32.nearest":  {code: 0x90},
	"f32.sqrt":     {code: 0x91},
	"f32.add":      {code: 0x92},
	"f32.sub":      {code: 0x93},
	"f32.mul":      {code: 0x94},
	"f32.div":      {code: 0x95},
	"f32.min":      {code: 0x96},
	"f32.max":      {code: 0x97},
	"f32.copysign": {code: 0x98},

	"f64.abs":      {code: 0x99},
	"f64.neg":      {code: 0x9a},
	"f64.ceil":     {code: 0x9b},
	"f64.floor":    {code: 0x9c},
	"f64.trunc":    {code: 0x9d},
	"f64.nearest":  {code: 0x9e},
	"f64.sqrt":     {code: 0x9f},
	"f64.add":      {code: 0xa0},
	"f64.sub":      {code: 0xa1},
	"f64.mul":      {code: 0xa2},
	"f64.div":      {code: 0xa3},
	"f64.min":      {code: 0xa4},
	"f64.max":      {code: 0xa5},
	"f64.copysign": {code: 0xa6},

	"i32.wrap_i64":        {code: 0xa7},
	"i32.trunc_f32_s":     {code: 0xa8},
	"i32.trunc_f32_u":     {code: 0xa9},
	"i32.trunc_f64_s":     {code: 0xaa},
	"i32.trunc_f64_u":     {code: 0xab},
	"i64.extend_i32_s":    {code: 0xac},
	"i64.extend_i32_u":    {code: 0xad},
	"i64.trunc_f32_s":     {code: 0xae},
	"i64.trunc_f32_u":     {code: 0xaf},
	"i64.trunc_f64_s":     {code: 0xb0},
	"i64.trunc_f64_u":     {code: 0xb1},
	"f32.convert_i32_s":   {code: 0xb2},
	"f32.convert_i32_u":   {code: 0xb3},
	"f32.convert_i64_s":   {code: 0xb4},
	"f32.convert_i64_u":   {code: 0xb5},
	"f32.demote_f64":      {code: 0xb6},
	"f64.convert_i32_s":   {code: 0xb7},
	"f64.convert_i32_u":   {code: 0xb8},
	"f64.convert_i64_s":   {code: 0xb9},
	"f64.convert_i64_u":   {code: 0xba},
	"f64.promote_f32":     {code: 0xbb},
	"i32.reinterpret_f32": {code: 0xbc},
	"i64.reinterpret_f64": {code: 0xbd},
	"f32.reinterpret_i32": {code: 0xbe},
	"f64.reinterpret_i64": {code: 0xbf},

	"i32.extend8_s":  {code: 0xc0},
	"i32.extend16_s": {code: 0xc1},
	"i64.extend8_s":  {code: 0xc2},
	"i64.extend16_s": {code: 0xc3},
	"i64.extend32_s": {code: 0xc4},

	"ref.null":    {code: 0xd0, imm: immRefNull},
	"ref.is_null": {code: 0xd1},
	"ref.func":    {code: 0xd2, imm: immFunc},
}

var miscOps = map[string]miscInfo{
	"i32.trunc_sat_f32_s": {sub: 0, imm: immNone},
	"i32.trunc_sat_f32_u": {sub: 1, imm: immNone},
	"i32.trunc_sat_f64_s": {sub: 2, imm: immNone},
	"i32.trunc_sat_f64_u": {sub: 3, imm: immNone},
	"i64.trunc_sat_f32_s": {sub: 4, imm: immNone},
	"i64.trunc_sat_f32_u": {sub: 5, imm: immNone},
	"i64.trunc_sat_f64_s": {sub: 6, imm: immNone},
	"i64.trunc_sat_f64_u": {sub: 7, imm: immNone},

	"memory.init": {sub: 8, imm: immDataIdxMem},
	"data.drop":   {sub: 9, imm: immDataIdx},
	"memory.copy": {sub: 10, imm: immTwoZeros},
	"memory.fill": {sub: 11, imm: immOneZero},

	"table.init": {sub: 12, imm: immElemTable},
	"elem.drop":  {sub: 13, imm: immElemIdx},
	"table.copy": {sub: 14, imm: immTablePair},
	"table.grow": {sub: 15, imm: immTableIdx},
	"table.size": {sub: 16, imm: immTableIdx},
	"table.fill": {sub: 17, imm: immTableIdx},
}
