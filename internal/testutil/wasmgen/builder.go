// Package wasmgen 组装测试用 WASM 模块
//
// 测试直接手写字节码会很快失去可读性，这里提供一个最小的模块构建器：
// 类型、函数导入、函数、内存、全局变量、导出、start 段与数据段。
// 函数体仍由调用方用操作码拼接，构建器只负责段编码。
package wasmgen

// 值类型
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

// 导出类型
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

type funcType struct {
	params  []byte
	results []byte
}

type importFunc struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  []byte
	body    []byte
}

type exportEntry struct {
	name  string
	kind  byte
	index uint32
}

type dataSegment struct {
	offset uint32
	data   []byte
}

type memory struct {
	min, max uint32
	hasMax   bool
}

// Builder 模块构建器
type Builder struct {
	types   []funcType
	imports []importFunc
	funcs   []function
	memory  *memory
	globals [][]byte
	exports []exportEntry
	start   *uint32
	data    []dataSegment
	custom  [][]byte
}

// New 创建空模块构建器
func New() *Builder { return &Builder{} }

// Type 返回函数类型索引（相同签名复用）
func (b *Builder) Type(params, results []byte) uint32 {
	for i, t := range b.types {
		if string(t.params) == string(params) && string(t.results) == string(results) {
			return uint32(i)
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// ImportFunc 导入函数，必须在所有 Func 之前调用
func (b *Builder) ImportFunc(module, name string, params, results []byte) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmgen: ImportFunc after Func shifts function indices")
	}
	b.imports = append(b.imports, importFunc{module: module, name: name, typeIdx: b.Type(params, results)})
	return uint32(len(b.imports) - 1)
}

// Func 定义函数，返回函数索引；body 不含结尾 end
func (b *Builder) Func(params, results []byte, locals []byte, body ...[]byte) uint32 {
	var code []byte
	for _, part := range body {
		code = append(code, part...)
	}
	b.funcs = append(b.funcs, function{typeIdx: b.Type(params, results), locals: locals, body: code})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// Memory 定义线性内存（最小页数）
func (b *Builder) Memory(min uint32) *Builder {
	b.memory = &memory{min: min}
	return b
}

// MemoryMax 定义有上限的线性内存
func (b *Builder) MemoryMax(min, max uint32) *Builder {
	b.memory = &memory{min: min, max: max, hasMax: true}
	return b
}

// Global 定义全局变量，init 为常量表达式（不含 end）
func (b *Builder) Global(valType byte, mutable bool, init []byte) uint32 {
	mut := byte(0)
	if mutable {
		mut = 1
	}
	entry := append([]byte{valType, mut}, init...)
	b.globals = append(b.globals, append(entry, 0x0B))
	return uint32(len(b.globals) - 1)
}

// Export 导出任意索引
func (b *Builder) Export(name string, kind byte, index uint32) *Builder {
	b.exports = append(b.exports, exportEntry{name: name, kind: kind, index: index})
	return b
}

// ExportFunc 导出函数
func (b *Builder) ExportFunc(name string, index uint32) *Builder {
	return b.Export(name, KindFunc, index)
}

// ExportMemory 导出 0 号内存
func (b *Builder) ExportMemory(name string) *Builder {
	return b.Export(name, KindMemory, 0)
}

// Start 设置 start 函数
func (b *Builder) Start(index uint32) *Builder {
	b.start = &index
	return b
}

// Data 在 0 号内存的 offset 处放置数据段
func (b *Builder) Data(offset uint32, data []byte) *Builder {
	b.data = append(b.data, dataSegment{offset: offset, data: data})
	return b
}

// Custom 追加自定义段
func (b *Builder) Custom(name string, payload []byte) *Builder {
	b.custom = append(b.custom, append(vecBytes([]byte(name)), payload...))
	return b
}

// Bytes 编码模块
func (b *Builder) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	if len(b.types) > 0 {
		var p []byte
		p = ULEB(p, uint64(len(b.types)))
		for _, t := range b.types {
			p = append(p, 0x60)
			p = append(p, vecBytes(t.params)...)
			p = append(p, vecBytes(t.results)...)
		}
		out = appendSection(out, 1, p)
	}
	if len(b.imports) > 0 {
		var p []byte
		p = ULEB(p, uint64(len(b.imports)))
		for _, imp := range b.imports {
			p = append(p, vecBytes([]byte(imp.module))...)
			p = append(p, vecBytes([]byte(imp.name))...)
			p = append(p, KindFunc)
			p = ULEB(p, uint64(imp.typeIdx))
		}
		out = appendSection(out, 2, p)
	}
	if len(b.funcs) > 0 {
		var p []byte
		p = ULEB(p, uint64(len(b.funcs)))
		for _, f := range b.funcs {
			p = ULEB(p, uint64(f.typeIdx))
		}
		out = appendSection(out, 3, p)
	}
	if b.memory != nil {
		p := []byte{0x01}
		if b.memory.hasMax {
			p = append(p, 0x01)
			p = ULEB(p, uint64(b.memory.min))
			p = ULEB(p, uint64(b.memory.max))
		} else {
			p = append(p, 0x00)
			p = ULEB(p, uint64(b.memory.min))
		}
		out = appendSection(out, 5, p)
	}
	if len(b.globals) > 0 {
		var p []byte
		p = ULEB(p, uint64(len(b.globals)))
		for _, g := range b.globals {
			p = append(p, g...)
		}
		out = appendSection(out, 6, p)
	}
	if len(b.exports) > 0 {
		var p []byte
		p = ULEB(p, uint64(len(b.exports)))
		for _, e := range b.exports {
			p = append(p, vecBytes([]byte(e.name))...)
			p = append(p, e.kind)
			p = ULEB(p, uint64(e.index))
		}
		out = appendSection(out, 7, p)
	}
	if b.start != nil {
		out = appendSection(out, 8, ULEB(nil, uint64(*b.start)))
	}
	if len(b.funcs) > 0 {
		var p []byte
		p = ULEB(p, uint64(len(b.funcs)))
		for _, f := range b.funcs {
			var body []byte
			body = ULEB(body, uint64(len(f.locals)))
			for _, l := range f.locals {
				body = append(body, 0x01, l)
			}
			body = append(body, f.body...)
			body = append(body, 0x0B)
			p = ULEB(p, uint64(len(body)))
			p = append(p, body...)
		}
		out = appendSection(out, 10, p)
	}
	if len(b.data) > 0 {
		var p []byte
		p = ULEB(p, uint64(len(b.data)))
		for _, d := range b.data {
			p = append(p, 0x00)
			p = append(p, I32Const(int32(d.offset))...)
			p = append(p, 0x0B)
			p = append(p, vecBytes(d.data)...)
		}
		out = appendSection(out, 11, p)
	}
	for _, c := range b.custom {
		out = appendSection(out, 0, c)
	}
	return out
}

func appendSection(dst []byte, id byte, payload []byte) []byte {
	dst = append(dst, id)
	dst = ULEB(dst, uint64(len(payload)))
	return append(dst, payload...)
}

func vecBytes(b []byte) []byte {
	return append(ULEB(nil, uint64(len(b))), b...)
}

// ULEB 追加无符号 LEB128
func ULEB(dst []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, c|0x80)
			continue
		}
		return append(dst, c)
	}
}

// SLEB 追加有符号 LEB128
func SLEB(dst []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(dst, c)
		}
		dst = append(dst, c|0x80)
	}
}
