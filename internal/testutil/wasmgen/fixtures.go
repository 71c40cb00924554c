package wasmgen

// 策略程序夹具
//
// 所有夹具遵循宿主调用约定：导出 memory、
// evaluate(msg_ptr, msg_len, aux_ptr, aux_len, cfg_ptr, cfg_len, oracle_ptr, oracle_len i32) -> i64、
// custom_hash(ptr, len i32) -> i64。错误记录放在 RecordOffset 处的数据段。

// RecordOffset 错误记录/哈希结果在线性内存中的位置
const RecordOffset = 1024

// 程序错误标签（与 pkg/abi 一致）
const (
	KindInvalidTransactionRequest byte = 1
	KindInvalidSignatureRequest   byte = 2
	KindEvaluation                byte = 3
)

var (
	// EvaluateParams evaluate 参数类型
	EvaluateParams = []byte{I32, I32, I32, I32, I32, I32, I32, I32}
	// CustomHashParams custom_hash 参数类型
	CustomHashParams = []byte{I32, I32}
)

// evaluate 参数索引
const (
	ParamMsgPtr uint32 = iota
	ParamMsgLen
	ParamAuxPtr
	ParamAuxLen
	ParamCfgPtr
	ParamCfgLen
	ParamOraclePtr
	ParamOracleLen
)

// Record 编码错误记录 [kind][message]
func Record(kind byte, message string) []byte {
	return append([]byte{kind}, message...)
}

// rejectIf 条件成立时返回 RecordOffset 处长度为 n 的记录
func rejectIf(cond []byte, n int) []byte {
	var body []byte
	body = append(body, cond...)
	body = append(body, If(BlockEmpty)...)
	body = append(body, Packed(RecordOffset, uint32(n))...)
	body = append(body, Return...)
	body = append(body, End...)
	return body
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var noneHash = I64Const(-1)

// policy 在 b 上定义标准导出
func policy(b *Builder, evaluate, customHash []byte, skip string) *Builder {
	b.Memory(1)
	eval := b.Func(EvaluateParams, []byte{I64}, nil, evaluate)
	hash := b.Func(CustomHashParams, []byte{I64}, nil, customHash)
	if skip != "memory" {
		b.ExportMemory("memory")
	}
	if skip != "evaluate" {
		b.ExportFunc("evaluate", eval)
	}
	if skip != "custom_hash" {
		b.ExportFunc("custom_hash", hash)
	}
	return b
}

// Accept 总是返回 Ok
func Accept() []byte {
	return policy(New(), I64Const(0), noneHash, "").Bytes()
}

// Reject 总是返回给定错误
func Reject(kind byte, message string) []byte {
	rec := Record(kind, message)
	b := New().Data(RecordOffset, rec)
	return policy(b, Packed(RecordOffset, uint32(len(rec))), noneHash, "").Bytes()
}

// LengthCheck 消息长度小于 min 时返回给定错误
func LengthCheck(min int32, kind byte, message string) []byte {
	rec := Record(kind, message)
	body := concat(
		rejectIf(concat(LocalGet(ParamMsgLen), I32Const(min), I32LtS), len(rec)),
		I64Const(0),
	)
	b := New().Data(RecordOffset, rec)
	return policy(b, body, noneHash, "").Bytes()
}

// RequireAuxiliary 未提供辅助数据（aux_len == -1）时返回给定错误
func RequireAuxiliary(kind byte, message string) []byte {
	rec := Record(kind, message)
	body := concat(
		rejectIf(concat(LocalGet(ParamAuxLen), I32Const(-1), I32Eq), len(rec)),
		I64Const(0),
	)
	b := New().Data(RecordOffset, rec)
	return policy(b, body, noneHash, "").Bytes()
}

// RequireOracle 未提供预言机数据时返回给定错误
func RequireOracle(kind byte, message string) []byte {
	rec := Record(kind, message)
	body := concat(
		rejectIf(concat(LocalGet(ParamOracleLen), I32Const(-1), I32Eq), len(rec)),
		I64Const(0),
	)
	b := New().Data(RecordOffset, rec)
	return policy(b, body, noneHash, "").Bytes()
}

// FirstByte 读取消息首字节，不等于 want 时返回 Evaluation 错误
func FirstByte(want byte, message string) []byte {
	rec := Record(KindEvaluation, message)
	body := concat(
		rejectIf(concat(LocalGet(ParamMsgPtr), I32Load8U(0), I32Const(int32(want)), I32Ne), len(rec)),
		I64Const(0),
	)
	b := New().Data(RecordOffset, rec)
	return policy(b, body, noneHash, "").Bytes()
}

// GuestAlloc 与 FirstByte 相同，但导出从 4096 开始的 bump 分配器 alloc
func GuestAlloc(want byte, message string) []byte {
	rec := Record(KindEvaluation, message)
	b := New().Data(RecordOffset, rec)
	heap := b.Global(I32, true, I32Const(4096))
	body := concat(
		rejectIf(concat(LocalGet(ParamMsgPtr), I32Load8U(0), I32Const(int32(want)), I32Ne), len(rec)),
		I64Const(0),
	)
	policy(b, body, noneHash, "")
	alloc := b.Func([]byte{I32}, []byte{I32}, nil,
		GlobalGet(heap), GlobalGet(heap), LocalGet(0), I32Add, GlobalSet(heap))
	b.ExportFunc("alloc", alloc)
	return b.Bytes()
}

// Reactor 与 TinyGo 反应器产物相同的导出形态：memory、alloc、_initialize、evaluate、custom_hash
//
// _initialize 空转 initLoops 次后设置就绪标志，evaluate 与 custom_hash 在未初始化时陷入；
// evaluate 读取 alloc 写入的消息，长度小于 min 时返回给定的 Evaluation 错误。
func Reactor(initLoops, min int32, message string) []byte {
	rec := Record(KindEvaluation, message)
	b := New().Data(RecordOffset, rec)
	ready := b.Global(I32, true, I32Const(0))
	heap := b.Global(I32, true, I32Const(4096))
	requireReady := concat(GlobalGet(ready), I32Eqz, If(BlockEmpty), Unreachable, End)
	body := concat(
		requireReady,
		rejectIf(concat(LocalGet(ParamMsgLen), I32Const(min), I32LtS), len(rec)),
		I64Const(0),
	)
	policy(b, body, concat(requireReady, noneHash), "")
	alloc := b.Func([]byte{I32}, []byte{I32}, nil,
		GlobalGet(heap), GlobalGet(heap), LocalGet(0), I32Add, GlobalSet(heap))
	initialize := b.Func(nil, nil, []byte{I32},
		I32Const(initLoops), LocalSet(0),
		Loop(BlockEmpty),
		LocalGet(0), I32Const(1), I32Sub, LocalTee(0), BrIf(0),
		End,
		I32Const(1), GlobalSet(ready),
	)
	b.ExportFunc("alloc", alloc)
	b.ExportFunc("_initialize", initialize)
	return b.Bytes()
}

// GuestAllocFails alloc 总是返回 0
func GuestAllocFails() []byte {
	b := policy(New(), I64Const(0), noneHash, "")
	alloc := b.Func([]byte{I32}, []byte{I32}, nil, I32Const(0))
	b.ExportFunc("alloc", alloc)
	return b.Bytes()
}

// InfiniteLoop evaluate 与 custom_hash 都不会终止
func InfiniteLoop() []byte {
	loop := concat(Loop(BlockEmpty), Br(0), End, I64Const(0))
	return policy(New(), loop, loop, "").Bytes()
}

// FillLoop evaluate 循环执行 memory.fill，每次填充 size 字节
func FillLoop(size int32) []byte {
	loop := concat(
		Loop(BlockEmpty),
		I32Const(0), I32Const(0), I32Const(size), MemoryFill,
		Br(0),
		End,
		I64Const(0),
	)
	return policy(New(), loop, noneHash, "").Bytes()
}

// StartLoop start 函数不会终止
func StartLoop() []byte {
	b := policy(New(), I64Const(0), noneHash, "")
	start := b.Func(nil, nil, nil, Loop(BlockEmpty), Br(0), End)
	return b.Start(start).Bytes()
}

// Trap evaluate 执行 unreachable
func Trap() []byte {
	return policy(New(), Unreachable, Unreachable, "").Bytes()
}

// CustomHash custom_hash 返回 n 字节（0,1,2...）；n < 0 表示 None
func CustomHash(n int) []byte {
	b := New()
	body := noneHash
	if n >= 0 {
		out := make([]byte, n)
		for i := range out {
			out[i] = byte(i)
		}
		b.Data(RecordOffset, out)
		body = Packed(RecordOffset, uint32(n))
	}
	return policy(b, I64Const(0), body, "").Bytes()
}

// OutOfBoundsRecord evaluate 返回越界的记录指针
func OutOfBoundsRecord() []byte {
	return policy(New(), Packed(0xFFFF0000, 16), Packed(0xFFFF0000, 32), "").Bytes()
}

// UnknownRecordKind evaluate 返回未定义标签的记录
func UnknownRecordKind() []byte {
	rec := Record(9, "unknown")
	b := New().Data(RecordOffset, rec)
	return policy(b, Packed(RecordOffset, uint32(len(rec))), noneHash, "").Bytes()
}

// ReadsRandom 调用 WASI random_get，成功取得随机数时返回 Evaluation 错误
func ReadsRandom() []byte {
	rec := Record(KindEvaluation, "random source available")
	b := New()
	randomGet := b.ImportFunc("wasi_snapshot_preview1", "random_get", []byte{I32, I32}, []byte{I32})
	b.Data(RecordOffset, rec)
	body := concat(
		rejectIf(concat(I32Const(2048), I32Const(16), Call(randomGet), I32Eqz), len(rec)),
		I64Const(0),
	)
	return policy(b, body, noneHash, "").Bytes()
}

// ImportsEnv 导入宿主接口之外的函数
func ImportsEnv() []byte {
	b := New()
	b.ImportFunc("env", "abort", nil, nil)
	return policy(b, I64Const(0), noneHash, "").Bytes()
}

// MissingExport 缺少指定导出（memory、evaluate 或 custom_hash）
func MissingExport(name string) []byte {
	return policy(New(), I64Const(0), noneHash, name).Bytes()
}

// WrongEvaluateSignature evaluate 签名为 () -> i32
func WrongEvaluateSignature() []byte {
	b := New().Memory(1)
	eval := b.Func(nil, []byte{I32}, nil, I32Const(0))
	hash := b.Func(CustomHashParams, []byte{I64}, nil, noneHash)
	return b.ExportMemory("memory").
		ExportFunc("evaluate", eval).
		ExportFunc("custom_hash", hash).
		Bytes()
}
