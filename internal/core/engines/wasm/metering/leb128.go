package metering

import (
	"errors"
	"fmt"
)

var (
	errUnexpectedEOF = errors.New("unexpected end of section")
	errLEBOverflow   = errors.New("leb128 overflow")
)

// reader 字节码顺序读取器
type reader struct {
	buf []byte
	off int
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) len() int { return len(r.buf) - r.off }

func (r *reader) u8() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, errUnexpectedEOF
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) bytes(n uint64) ([]byte, error) {
	if n > uint64(r.len()) {
		return nil, errUnexpectedEOF
	}
	out := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return out, nil
}

// uleb 读取无符号 LEB128，maxBytes 为编码长度上限（u32 为 5，u64 为 10）
func (r *reader) uleb(maxBytes int) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < maxBytes; i++ {
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, errLEBOverflow
}

func (r *reader) u32() (uint32, error) {
	v, err := r.uleb(5)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFF_FFFF {
		return 0, errLEBOverflow
	}
	return uint32(v), nil
}

func (r *reader) u64() (uint64, error) { return r.uleb(10) }

// skipSLEB 跳过有符号 LEB128（只校验长度，取值交给运行时校验）
func (r *reader) skipSLEB(maxBytes int) error {
	for i := 0; i < maxBytes; i++ {
		b, err := r.u8()
		if err != nil {
			return err
		}
		if b&0x80 == 0 {
			return nil
		}
	}
	return errLEBOverflow
}

// name 读取 vec(byte) 形式的名称
func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(uint64(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func appendULEB(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}

func appendSLEB(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

func appendName(dst []byte, name string) []byte {
	dst = appendULEB(dst, uint64(len(name)))
	return append(dst, name...)
}

func at(where string, off int) string {
	return fmt.Sprintf("%s@%d", where, off)
}
