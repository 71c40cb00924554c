package metering

import (
	"bytes"
	"errors"
	"fmt"
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// 段 ID
const (
	sectionCustom    byte = 0
	sectionType      byte = 1
	sectionImport    byte = 2
	sectionFunction  byte = 3
	sectionTable     byte = 4
	sectionMemory    byte = 5
	sectionGlobal    byte = 6
	sectionExport    byte = 7
	sectionStart     byte = 8
	sectionElement   byte = 9
	sectionCode      byte = 10
	sectionData      byte = 11
	sectionDataCount byte = 12
	sectionTag       byte = 13
)

// 导入/导出描述符类型
const (
	externFunc   byte = 0x00
	externTable  byte = 0x01
	externMemory byte = 0x02
	externGlobal byte = 0x03
	externTag    byte = 0x04
)

// sectionRank 非自定义段在二进制中的规范顺序
var sectionRank = map[byte]int{
	sectionType:      1,
	sectionImport:    2,
	sectionFunction:  3,
	sectionTable:     4,
	sectionMemory:    5,
	sectionTag:       6,
	sectionGlobal:    7,
	sectionExport:    8,
	sectionStart:     9,
	sectionElement:   10,
	sectionDataCount: 11,
	sectionCode:      12,
	sectionData:      13,
}

type section struct {
	id      byte
	payload []byte
}

type module struct {
	sections []section
}

func parseModule(wasm []byte) (*module, error) {
	if len(wasm) < len(wasmHeader) || !bytes.Equal(wasm[:len(wasmHeader)], wasmHeader) {
		return nil, WrapMalformedError("header", errors.New("bad magic or version"))
	}
	r := newReader(wasm[len(wasmHeader):])
	m := &module{}
	seen := make(map[byte]bool)
	lastRank := 0
	for r.len() > 0 {
		id, err := r.u8()
		if err != nil {
			return nil, WrapMalformedError("section id", err)
		}
		size, err := r.u32()
		if err != nil {
			return nil, WrapMalformedError(at("section size", r.off), err)
		}
		payload, err := r.bytes(uint64(size))
		if err != nil {
			return nil, WrapMalformedError(at("section payload", r.off), err)
		}
		if id != sectionCustom {
			rank, ok := sectionRank[id]
			if !ok {
				return nil, WrapMalformedError("section", fmt.Errorf("unknown section id %d", id))
			}
			if seen[id] || rank < lastRank {
				return nil, WrapMalformedError("section", fmt.Errorf("section %d out of order", id))
			}
			seen[id] = true
			lastRank = rank
		}
		m.sections = append(m.sections, section{id: id, payload: payload})
	}
	return m, nil
}

func (m *module) find(id byte) int {
	for i, s := range m.sections {
		if s.id == id {
			return i
		}
	}
	return -1
}

func (m *module) payload(id byte) []byte {
	if i := m.find(id); i >= 0 {
		return m.sections[i].payload
	}
	return nil
}

// set 替换段内容；段不存在时按规范顺序插入（跳过自定义段）
func (m *module) set(id byte, payload []byte) {
	if i := m.find(id); i >= 0 {
		m.sections[i].payload = payload
		return
	}
	rank := sectionRank[id]
	pos := len(m.sections)
	for i, s := range m.sections {
		if s.id != sectionCustom && sectionRank[s.id] > rank {
			pos = i
			break
		}
	}
	m.sections = append(m.sections, section{})
	copy(m.sections[pos+1:], m.sections[pos:])
	m.sections[pos] = section{id: id, payload: payload}
}

func (m *module) remove(id byte) {
	if i := m.find(id); i >= 0 {
		m.sections = append(m.sections[:i], m.sections[i+1:]...)
	}
}

func (m *module) encode() []byte {
	out := append([]byte(nil), wasmHeader...)
	for _, s := range m.sections {
		out = append(out, s.id)
		out = appendULEB(out, uint64(len(s.payload)))
		out = append(out, s.payload...)
	}
	return out
}

func skipLimits(r *reader) error {
	flags, err := r.u8()
	if err != nil {
		return err
	}
	if _, err := r.u64(); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		if _, err := r.u64(); err != nil {
			return err
		}
	}
	return nil
}

// countImports 统计导入的函数与全局变量个数
func countImports(payload []byte) (funcs, globals uint32, err error) {
	if payload == nil {
		return 0, 0, nil
	}
	r := newReader(payload)
	n, err := r.u32()
	if err != nil {
		return 0, 0, err
	}
	for i := uint32(0); i < n; i++ {
		if _, err := r.name(); err != nil {
			return 0, 0, err
		}
		if _, err := r.name(); err != nil {
			return 0, 0, err
		}
		kind, err := r.u8()
		if err != nil {
			return 0, 0, err
		}
		switch kind {
		case externFunc:
			funcs++
			_, err = r.u32()
		case externTable:
			if _, err = r.u8(); err == nil {
				err = skipLimits(r)
			}
		case externMemory:
			err = skipLimits(r)
		case externGlobal:
			globals++
			_, err = r.bytes(2)
		case externTag:
			if _, err = r.u8(); err == nil {
				_, err = r.u32()
			}
		default:
			err = fmt.Errorf("unknown import kind 0x%02X", kind)
		}
		if err != nil {
			return 0, 0, err
		}
	}
	return funcs, globals, nil
}

// vecCount 读取 vec 段的元素个数，并返回剩余内容
func vecCount(payload []byte) (uint32, []byte, error) {
	if payload == nil {
		return 0, nil, nil
	}
	r := newReader(payload)
	n, err := r.u32()
	if err != nil {
		return 0, nil, err
	}
	return n, payload[r.off:], nil
}

// export 导出段条目
type export struct {
	name  string
	kind  byte
	index uint32
}

func parseExports(payload []byte) ([]export, error) {
	if payload == nil {
		return nil, nil
	}
	r := newReader(payload)
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]export, 0, n)
	for i := uint32(0); i < n; i++ {
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		kind, err := r.u8()
		if err != nil {
			return nil, err
		}
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		out = append(out, export{name: name, kind: kind, index: idx})
	}
	if r.len() != 0 {
		return nil, errors.New("trailing bytes in export section")
	}
	return out, nil
}

func encodeExports(exports []export) []byte {
	out := appendULEB(nil, uint64(len(exports)))
	for _, e := range exports {
		out = appendName(out, e.name)
		out = append(out, e.kind)
		out = appendULEB(out, uint64(e.index))
	}
	return out
}
