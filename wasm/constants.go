package wasm

// Section IDs.
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
)

// Import/export kinds.
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

// Value type encodings.
const (
	ValI32       byte = 0x7f
	ValI64       byte = 0x7e
	ValF32       byte = 0x7d
	ValF64       byte = 0x7c
	ValV128      byte = 0x7b
	ValFuncRef   byte = 0x70
	ValExternRef byte = 0x6f
)

// FuncTypeByte marks a function type in the type section.
const FuncTypeByte byte = 0x60

// BlockTypeVoid is the empty block type.
const BlockTypeVoid byte = 0x40

// Control opcodes.
const (
	OpUnreachable  byte = 0x00
	OpNop          byte = 0x01
	OpBlock        byte = 0x02
	OpLoop         byte = 0x03
	OpIf           byte = 0x04
	OpElse         byte = 0x05
	OpEnd          byte = 0x0b
	OpBr           byte = 0x0c
	OpBrIf         byte = 0x0d
	OpBrTable      byte = 0x0e
	OpReturn       byte = 0x0f
	OpCall         byte = 0x10
	OpCallIndirect byte = 0x11
)

// Parametric and variable opcodes.
const (
	OpDrop       byte = 0x1a
	OpSelect     byte = 0x1b
	OpSelectT    byte = 0x1c
	OpLocalGet   byte = 0x20
	OpLocalSet   byte = 0x21
	OpLocalTee   byte = 0x22
	OpGlobalGet  byte = 0x23
	OpGlobalSet  byte = 0x24
	OpTableGet   byte = 0x25
	OpTableSet   byte = 0x26
	OpMemorySize byte = 0x3f
	OpMemoryGrow byte = 0x40
)

// Constant opcodes.
const (
	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
	OpF32Const byte = 0x43
	OpF64Const byte = 0x44
)

// Numeric opcodes used directly by transforms.
const (
	OpI64Sub byte = 0x7d
	OpI64LtS byte = 0x53
)

// Reference opcodes.
const (
	OpRefNull   byte = 0xd0
	OpRefIsNull byte = 0xd1
	OpRefFunc   byte = 0xd2
)

// Prefix opcodes.
const (
	OpPrefixMisc   byte = 0xfc
	OpPrefixSIMD   byte = 0xfd
	OpPrefixAtomic byte = 0xfe
)

// Misc (0xFC) sub-opcodes with their immediate shapes handled in scan.go.
const (
	MiscMemoryInit uint32 = 8
	MiscDataDrop   uint32 = 9
	MiscMemoryCopy uint32 = 10
	MiscMemoryFill uint32 = 11
	MiscTableInit  uint32 = 12
	MiscElemDrop   uint32 = 13
	MiscTableCopy  uint32 = 14
	MiscTableGrow  uint32 = 15
	MiscTableSize  uint32 = 16
	MiscTableFill  uint32 = 17
)

// magic and version prefix every core module.
var moduleHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
