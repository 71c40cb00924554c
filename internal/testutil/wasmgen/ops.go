package wasmgen

// 常用指令编码

// Op 拼接原始操作码
func Op(ops ...byte) []byte { return ops }

func withU32(op byte, v uint32) []byte { return ULEB([]byte{op}, uint64(v)) }

func I32Const(v int32) []byte { return SLEB([]byte{0x41}, int64(v)) }
func I64Const(v int64) []byte { return SLEB([]byte{0x42}, v) }

func LocalGet(i uint32) []byte  { return withU32(0x20, i) }
func LocalSet(i uint32) []byte  { return withU32(0x21, i) }
func GlobalGet(i uint32) []byte { return withU32(0x23, i) }
func GlobalSet(i uint32) []byte { return withU32(0x24, i) }
func Call(i uint32) []byte      { return withU32(0x10, i) }
func Br(depth uint32) []byte    { return withU32(0x0C, depth) }
func BrIf(depth uint32) []byte  { return withU32(0x0D, depth) }

// Block / Loop / If 以给定块类型开始结构化指令（0x40 为空类型）
func Block(blockType byte) []byte { return []byte{0x02, blockType} }
func Loop(blockType byte) []byte  { return []byte{0x03, blockType} }
func If(blockType byte) []byte    { return []byte{0x04, blockType} }

// 无立即数指令
var (
	Unreachable = []byte{0x00}
	Nop         = []byte{0x01}
	Else        = []byte{0x05}
	End         = []byte{0x0B}
	Return      = []byte{0x0F}
	Drop        = []byte{0x1A}
	I32Eqz      = []byte{0x45}
	I32Eq       = []byte{0x46}
	I32Ne       = []byte{0x47}
	I32LtS      = []byte{0x48}
	I32Add      = []byte{0x6A}
	I32Sub      = []byte{0x6B}
	I64Add      = []byte{0x7C}
	I64Or       = []byte{0x84}
	I64Shl      = []byte{0x86}
	I64ExtendU  = []byte{0xAD}
)

// BlockEmpty 空块类型
const BlockEmpty byte = 0x40

// I32Load8U i32.load8_u offset
func I32Load8U(offset uint32) []byte { return ULEB([]byte{0x2D, 0x00}, uint64(offset)) }

// I32Load i32.load offset（对齐 2）
func I32Load(offset uint32) []byte { return ULEB([]byte{0x28, 0x02}, uint64(offset)) }

// I32Store i32.store offset（对齐 2）
func I32Store(offset uint32) []byte { return ULEB([]byte{0x36, 0x02}, uint64(offset)) }

// Packed 返回 ptr<<32|len 的 i64 常量
func Packed(ptr, length uint32) []byte {
	return I64Const(int64(uint64(ptr)<<32 | uint64(length)))
}

// LocalTee local.tee i
func LocalTee(i uint32) []byte { return withU32(0x22, i) }

// 批量内存指令（内存索引 0）
var (
	MemoryFill = []byte{0xFC, 0x0B, 0x00}
	MemoryCopy = []byte{0xFC, 0x0A, 0x00, 0x00}
)
