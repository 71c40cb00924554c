package metering

import "fmt"

// 控制指令操作码
const (
	opUnreachable byte = 0x00
	opBlock       byte = 0x02
	opLoop        byte = 0x03
	opIf          byte = 0x04
	opElse        byte = 0x05
	opEnd         byte = 0x0B
	opBrIf        byte = 0x0D
	opCall        byte = 0x10
	opLocalGet    byte = 0x20
	opGlobalGet   byte = 0x23
	opGlobalSet   byte = 0x24
	opI64Const    byte = 0x42
	opI64LtS      byte = 0x53
	opI64Sub      byte = 0x7D
	opI64ShrU     byte = 0x88
	opI64ExtendU  byte = 0xAD

	prefixMisc    byte = 0xFC
	prefixSIMD    byte = 0xFD
	prefixThreads byte = 0xFE

	blockTypeEmpty byte = 0x40
)

// isValType 单字节值类型（数值、v128、funcref、externref）
func isValType(b byte) bool {
	switch b {
	case 0x7F, 0x7E, 0x7D, 0x7C, 0x7B, 0x70, 0x6F:
		return true
	}
	return false
}

// instrDecoder 函数体指令解码器
//
// 只负责跳过立即数并识别控制结构，类型检查交给 wazero 编译阶段。
// globals 是插桩前模块的全局变量总数，引用更大索引的指令会被拒绝，
// 以免程序读写计量全局变量；funcs 同理限制函数索引。
type instrDecoder struct {
	r       *reader
	globals uint32
	funcs   uint32
}

func (d *instrDecoder) blockType() error {
	b, err := d.r.u8()
	if err != nil {
		return err
	}
	if b == blockTypeEmpty || isValType(b) {
		return nil
	}
	// 多值块：类型索引（s33，非负）
	d.r.off--
	return d.r.skipSLEB(5)
}

func (d *instrDecoder) heapType() error {
	b, err := d.r.u8()
	if err != nil {
		return err
	}
	if b == 0x70 || b == 0x6F {
		return nil
	}
	d.r.off--
	return d.r.skipSLEB(5)
}

func (d *instrDecoder) memarg() error {
	flags, err := d.r.u32()
	if err != nil {
		return err
	}
	if flags&0x40 != 0 {
		if _, err := d.r.u32(); err != nil {
			return err
		}
	}
	_, err = d.r.u64()
	return err
}

func (d *instrDecoder) u32s(n int) error {
	for i := 0; i < n; i++ {
		if _, err := d.r.u32(); err != nil {
			return err
		}
	}
	return nil
}

// function 读取函数索引，拒绝指向插桩追加函数的引用
func (d *instrDecoder) function() error {
	idx, err := d.r.u32()
	if err != nil {
		return err
	}
	if idx >= d.funcs {
		return fmt.Errorf("%w: function index %d out of range", ErrReservedName, idx)
	}
	return nil
}

func (d *instrDecoder) global() error {
	idx, err := d.r.u32()
	if err != nil {
		return err
	}
	if idx >= d.globals {
		return fmt.Errorf("%w: global index %d out of range", ErrReservedName, idx)
	}
	return nil
}

// immediates 跳过 op 之后的立即数（控制结构 block/loop/if/end 由调用方处理）
func (d *instrDecoder) immediates(op byte) error {
	switch {
	case op == opUnreachable, op == 0x01, op == opElse, op == 0x0F, op == 0x1A, op == 0x1B:
		return nil
	case op >= 0x06 && op <= 0x0A, op == 0x18, op == 0x19, op == 0x1F:
		return WrapUnsupportedError("exception handling", fmt.Sprintf("0x%02X", op))
	case op == 0x0C, op == opBrIf:
		return d.u32s(1)
	case op == 0x0E:
		n, err := d.r.u32()
		if err != nil {
			return err
		}
		return d.u32s(int(n) + 1)
	case op == opCall, op == 0x12:
		return d.function()
	case op == 0x11, op == 0x13:
		return d.u32s(2)
	case op == 0x1C:
		n, err := d.r.u32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			t, err := d.r.u8()
			if err != nil {
				return err
			}
			if !isValType(t) {
				return fmt.Errorf("invalid select type 0x%02X", t)
			}
		}
		return nil
	case op >= 0x20 && op <= 0x22:
		return d.u32s(1)
	case op == opGlobalGet, op == opGlobalSet:
		return d.global()
	case op == 0x25, op == 0x26:
		return d.u32s(1)
	case op >= 0x28 && op <= 0x3E:
		return d.memarg()
	case op == 0x3F, op == 0x40:
		return d.u32s(1)
	case op == 0x41:
		return d.r.skipSLEB(5)
	case op == opI64Const:
		return d.r.skipSLEB(10)
	case op == 0x43:
		_, err := d.r.bytes(4)
		return err
	case op == 0x44:
		_, err := d.r.bytes(8)
		return err
	case op >= 0x45 && op <= 0xC4:
		return nil
	case op == 0xD0:
		return d.heapType()
	case op == 0xD1:
		return nil
	case op == 0xD2:
		return d.function()
	case op == prefixMisc:
		return d.misc()
	case op == prefixSIMD:
		return d.simd()
	case op == prefixThreads:
		return WrapUnsupportedError("threads", "0xFE")
	}
	return WrapUnsupportedError("code", fmt.Sprintf("0x%02X", op))
}

func (d *instrDecoder) misc() error {
	sub, err := d.r.u32()
	if err != nil {
		return err
	}
	switch {
	case sub <= 7:
		return nil
	case sub == 8, sub == 10, sub == 12, sub == 14:
		return d.u32s(2)
	case sub == 9, sub == 11, sub == 13, sub >= 15 && sub <= 17:
		return d.u32s(1)
	}
	return WrapUnsupportedError("misc", fmt.Sprintf("0xFC %d", sub))
}

func (d *instrDecoder) simd() error {
	sub, err := d.r.u32()
	if err != nil {
		return err
	}
	switch {
	case sub <= 11, sub == 92, sub == 93:
		return d.memarg()
	case sub == 12, sub == 13:
		_, err := d.r.bytes(16)
		return err
	case sub >= 21 && sub <= 34:
		_, err := d.r.u8()
		return err
	case sub >= 84 && sub <= 91:
		if err := d.memarg(); err != nil {
			return err
		}
		_, err := d.r.u8()
		return err
	case sub <= 0x113:
		return nil
	}
	return WrapUnsupportedError("simd", fmt.Sprintf("0xFD %d", sub))
}
