// Package metering 为 WASM 字节码注入燃料计量
//
// 🎯 **核心职责**
//
// wazero 没有内建的指令计数，运行时在编译前改写字节码：
//   - 追加一个可变 i64 全局变量保存剩余燃料，并以 FuelExport 名称导出；
//   - 在每个函数入口与每个 loop 头部扣减该区域的静态指令数，
//     结果小于 0 时执行 unreachable 陷入；
//   - 移除 start 段并以 StartExport 名称导出原 start 函数，
//     由宿主在实例化后显式调用，使 start 函数同样受燃料约束，
//     且陷入后宿主仍可读取燃料全局变量以区分"燃料耗尽"与普通陷入。
//
// 批量内存指令（memory.fill / memory.copy / memory.init）的开销与长度操作数成正比：
// 插桩在指令前调用一个追加的计费函数，按每 BulkBytesPerFuel 字节 1 单位扣减燃料，
// 长度由运行期取值决定，静态计数无法覆盖。
//
// 计量是保守的：区域开销按静态指令数一次性扣减，提前跳出的分支也会被完整计费。
// 没有分支回边的直线代码不会无限执行，因此函数入口与循环头部足以界定总执行量。
package metering

import (
	"errors"
	"fmt"
	"math"
)

const (
	// FuelExport 剩余燃料全局变量的导出名
	FuelExport = "__policy_fuel"
	// StartExport 原 start 函数的导出名
	StartExport = "__policy_start"

	// BulkBytesPerFuel 批量内存指令每消耗 1 单位燃料可处理的字节数
	BulkBytesPerFuel = 64
	bulkShift        = 6
)

// Result 插桩结果
type Result struct {
	// Bytecode 插桩后的模块
	Bytecode []byte
	// FuelGlobal 燃料全局变量的导出名
	FuelGlobal string
	// StartFunction 原 start 函数的导出名；模块没有 start 段时为空
	StartFunction string
	// Functions 被计量的函数个数
	Functions int
	// MeterPoints 注入的计量点个数
	MeterPoints int
	// BulkOps 按长度计费的批量内存指令个数
	BulkOps int
}

// Exhausted 燃料全局变量的读数是否表示燃料耗尽
func Exhausted(raw uint64) bool {
	return int64(raw) < 0
}

// Consumed 根据预算与燃料全局变量读数计算消耗量（耗尽时按预算计）
func Consumed(budget uint64, raw uint64) uint64 {
	remaining := int64(raw)
	if remaining < 0 {
		return budget
	}
	if uint64(remaining) > budget {
		return 0
	}
	return budget - uint64(remaining)
}

// Instrument 为模块注入燃料计量，fuel 为初始燃料（超过 MaxInt64 时截断）
func Instrument(wasm []byte, fuel uint64) (*Result, error) {
	m, err := parseModule(wasm)
	if err != nil {
		return nil, err
	}

	importedFuncs, importedGlobals, err := countImports(m.payload(sectionImport))
	if err != nil {
		return nil, WrapMalformedError("import section", err)
	}
	definedFuncs, funcEntries, err := vecCount(m.payload(sectionFunction))
	if err != nil {
		return nil, WrapMalformedError("function section", err)
	}
	chargeIndex := importedFuncs + definedFuncs
	definedGlobals, globalEntries, err := vecCount(m.payload(sectionGlobal))
	if err != nil {
		return nil, WrapMalformedError("global section", err)
	}
	fuelIndex := importedGlobals + definedGlobals

	exports, err := parseExports(m.payload(sectionExport))
	if err != nil {
		return nil, WrapMalformedError("export section", err)
	}
	for _, e := range exports {
		if e.name == FuelExport || e.name == StartExport {
			return nil, fmt.Errorf("%w: export %q", ErrReservedName, e.name)
		}
		if e.kind == externGlobal && e.index >= fuelIndex {
			return nil, fmt.Errorf("%w: export %q of global %d", ErrReservedName, e.name, e.index)
		}
		if e.kind == externFunc && e.index >= chargeIndex {
			return nil, fmt.Errorf("%w: export %q of function %d", ErrReservedName, e.name, e.index)
		}
	}

	res := &Result{FuelGlobal: FuelExport}

	// 代码段
	if payload := m.payload(sectionCode); payload != nil {
		bodies, functions, points, bulk, err := instrumentCode(payload, fuelIndex, chargeIndex)
		if err != nil {
			return nil, err
		}
		count := uint64(functions)
		if bulk > 0 {
			// 追加计费函数：类型、函数声明与函数体都放在各段末尾，已有索引不变
			typeCount, typeEntries, err := vecCount(m.payload(sectionType))
			if err != nil {
				return nil, WrapMalformedError("type section", err)
			}
			typeSec := appendULEB(nil, uint64(typeCount)+1)
			typeSec = append(typeSec, typeEntries...)
			typeSec = append(typeSec, chargeType...)
			m.set(sectionType, typeSec)

			funcSec := appendULEB(nil, uint64(definedFuncs)+1)
			funcSec = append(funcSec, funcEntries...)
			funcSec = appendULEB(funcSec, uint64(typeCount))
			m.set(sectionFunction, funcSec)

			charge := chargeBody(fuelIndex)
			bodies = appendULEB(bodies, uint64(len(charge)))
			bodies = append(bodies, charge...)
			count++
		}
		m.set(sectionCode, append(appendULEB(nil, count), bodies...))
		res.Functions = functions
		res.MeterPoints = points
		res.BulkOps = bulk
	}

	// 全局段：追加燃料全局变量
	if fuel > math.MaxInt64 {
		fuel = math.MaxInt64
	}
	globals := appendULEB(nil, uint64(definedGlobals)+1)
	globals = append(globals, globalEntries...)
	globals = append(globals, 0x7E, 0x01, opI64Const)
	globals = appendSLEB(globals, int64(fuel))
	globals = append(globals, opEnd)
	m.set(sectionGlobal, globals)

	// start 段 → 导出
	if payload := m.payload(sectionStart); payload != nil {
		r := newReader(payload)
		fn, err := r.u32()
		if err != nil || r.len() != 0 {
			return nil, WrapMalformedError("start section", errors.New("expected a single function index"))
		}
		if fn >= chargeIndex {
			return nil, fmt.Errorf("%w: start function %d", ErrReservedName, fn)
		}
		m.remove(sectionStart)
		exports = append(exports, export{name: StartExport, kind: externFunc, index: fn})
		res.StartFunction = StartExport
	}

	exports = append(exports, export{name: FuelExport, kind: externGlobal, index: fuelIndex})
	m.set(sectionExport, encodeExports(exports))

	res.Bytecode = m.encode()
	return res, nil
}

// meterSequence 扣减 cost 并在燃料为负时陷入
//
//	global.get g; i64.const cost; i64.sub; global.set g
//	global.get g; i64.const 0; i64.lt_s; if; unreachable; end
func meterSequence(dst []byte, global uint32, cost uint64) []byte {
	dst = append(dst, opGlobalGet)
	dst = appendULEB(dst, uint64(global))
	dst = append(dst, opI64Const)
	dst = appendSLEB(dst, int64(cost))
	dst = append(dst, opI64Sub, opGlobalSet)
	dst = appendULEB(dst, uint64(global))
	dst = append(dst, opGlobalGet)
	dst = appendULEB(dst, uint64(global))
	dst = append(dst, opI64Const, 0x00, opI64LtS, opIf, blockTypeEmpty, opUnreachable, opEnd)
	return dst
}

// chargeType 计费函数类型 (i32) -> i32
var chargeType = []byte{0x60, 0x01, 0x7F, 0x01, 0x7F}

// chargeBody 计费函数体：按长度扣减燃料后原样返回长度
//
//	global.get g; local.get 0; i64.extend_i32_u; i64.const shift; i64.shr_u; i64.sub; global.set g
//	global.get g; i64.const 0; i64.lt_s; if; unreachable; end
//	local.get 0
func chargeBody(global uint32) []byte {
	body := []byte{0x00} // 无局部变量
	body = append(body, opGlobalGet)
	body = appendULEB(body, uint64(global))
	body = append(body, opLocalGet, 0x00, opI64ExtendU, opI64Const, bulkShift, opI64ShrU, opI64Sub, opGlobalSet)
	body = appendULEB(body, uint64(global))
	body = append(body, opGlobalGet)
	body = appendULEB(body, uint64(global))
	body = append(body, opI64Const, 0x00, opI64LtS, opIf, blockTypeEmpty, opUnreachable, opEnd)
	body = append(body, opLocalGet, 0x00, opEnd)
	return body
}

// instrumentCode 改写代码段，返回不含个数前缀的函数体序列
func instrumentCode(payload []byte, fuelIndex, chargeIndex uint32) ([]byte, int, int, int, error) {
	r := newReader(payload)
	n, err := r.u32()
	if err != nil {
		return nil, 0, 0, 0, WrapMalformedError("code section", err)
	}
	var out []byte
	points, bulk := 0, 0
	for i := uint32(0); i < n; i++ {
		size, err := r.u32()
		if err != nil {
			return nil, 0, 0, 0, WrapMalformedError(fmt.Sprintf("function %d", i), err)
		}
		body, err := r.bytes(uint64(size))
		if err != nil {
			return nil, 0, 0, 0, WrapMalformedError(fmt.Sprintf("function %d", i), err)
		}
		rewritten, p, b, err := instrumentBody(body, fuelIndex, chargeIndex)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFeature) || errors.Is(err, ErrReservedName) {
				return nil, 0, 0, 0, fmt.Errorf("function %d: %w", i, err)
			}
			return nil, 0, 0, 0, WrapMalformedError(fmt.Sprintf("function %d", i), err)
		}
		points += p
		bulk += b
		out = appendULEB(out, uint64(len(rewritten)))
		out = append(out, rewritten...)
	}
	if r.len() != 0 {
		return nil, 0, 0, 0, WrapMalformedError("code section", errors.New("trailing bytes"))
	}
	return out, int(n), points, bulk, nil
}

// region 一个计量区域：函数体或 loop 体（不含嵌套 loop）
type region struct {
	at   int
	cost uint64
}

// insertion 注入位置：region >= 0 为区域计量序列，否则为批量指令前的计费调用
type insertion struct {
	at     int
	region int
}

// 按长度计费的 0xFC 子操作码
const (
	miscMemoryInit = 8
	miscMemoryCopy = 10
	miscMemoryFill = 11
)

func instrumentBody(body []byte, fuelIndex, chargeIndex uint32) ([]byte, int, int, error) {
	r := newReader(body)
	groups, err := r.u32()
	if err != nil {
		return nil, 0, 0, err
	}
	for g := uint32(0); g < groups; g++ {
		if _, err := r.u32(); err != nil {
			return nil, 0, 0, err
		}
		t, err := r.u8()
		if err != nil {
			return nil, 0, 0, err
		}
		if !isValType(t) {
			return nil, 0, 0, fmt.Errorf("invalid local type 0x%02X", t)
		}
	}

	dec := &instrDecoder{r: r, globals: fuelIndex, funcs: chargeIndex}
	regions := []region{{at: r.off}}
	inserts := []insertion{{at: r.off, region: 0}}
	active := []int{0}
	var frames []bool // true 表示 loop
	closed := false
	bulk := 0

	for r.len() > 0 {
		if closed {
			return nil, 0, 0, errors.New("instructions after function end")
		}
		at := r.off
		op, err := r.u8()
		if err != nil {
			return nil, 0, 0, err
		}
		regions[active[len(active)-1]].cost++

		switch op {
		case opBlock, opIf:
			if err := dec.blockType(); err != nil {
				return nil, 0, 0, err
			}
			frames = append(frames, false)
		case opLoop:
			if err := dec.blockType(); err != nil {
				return nil, 0, 0, err
			}
			frames = append(frames, true)
			regions = append(regions, region{at: r.off})
			inserts = append(inserts, insertion{at: r.off, region: len(regions) - 1})
			active = append(active, len(regions)-1)
		case opEnd:
			if len(frames) == 0 {
				closed = true
				continue
			}
			if frames[len(frames)-1] {
				active = active[:len(active)-1]
			}
			frames = frames[:len(frames)-1]
		case prefixMisc:
			sub, err := r.u32()
			if err != nil {
				return nil, 0, 0, err
			}
			r.off = at + 1
			switch sub {
			case miscMemoryInit, miscMemoryCopy, miscMemoryFill:
				// 长度操作数位于栈顶，计费函数消费后原样压回
				inserts = append(inserts, insertion{at: at, region: -1})
				bulk++
			}
			if err := dec.immediates(op); err != nil {
				return nil, 0, 0, err
			}
		default:
			if err := dec.immediates(op); err != nil {
				return nil, 0, 0, err
			}
		}
	}
	if !closed {
		return nil, 0, 0, errors.New("function body not terminated")
	}

	out := make([]byte, 0, len(body)+len(regions)*24+bulk*6)
	prev := 0
	for _, ins := range inserts {
		out = append(out, body[prev:ins.at]...)
		if ins.region < 0 {
			out = append(out, opCall)
			out = appendULEB(out, uint64(chargeIndex))
		} else {
			cost := regions[ins.region].cost
			if cost == 0 {
				cost = 1
			}
			out = meterSequence(out, fuelIndex, cost)
		}
		prev = ins.at
	}
	out = append(out, body[prev:]...)
	return out, len(regions), bulk, nil
}
