package substrate

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// scaleReader SCALE 编码的顺序读取器
//
// 所有读取在数据不足时返回错误，不会越界。
type scaleReader struct {
	buf []byte
	off int
}

func (r *scaleReader) remaining() int { return len(r.buf) - r.off }

func (r *scaleReader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("unexpected end of input at offset %d", r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *scaleReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d", n, r.off, r.remaining())
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

// readCompact 读取 Compact<uN>，maxBytes 限制大整数模式的字节数（u128 为 16）
func (r *scaleReader) readCompact(maxBytes int) (*big.Int, error) {
	b0, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch b0 & 0b11 {
	case 0b00:
		return big.NewInt(int64(b0 >> 2)), nil
	case 0b01:
		rest, err := r.readBytes(1)
		if err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint16([]byte{b0, rest[0]}) >> 2
		if v < 1<<6 {
			return nil, fmt.Errorf("non-canonical compact integer")
		}
		return big.NewInt(int64(v)), nil
	case 0b10:
		rest, err := r.readBytes(3)
		if err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint32([]byte{b0, rest[0], rest[1], rest[2]}) >> 2
		if v < 1<<14 {
			return nil, fmt.Errorf("non-canonical compact integer")
		}
		return big.NewInt(int64(v)), nil
	default:
		n := int(b0>>2) + 4
		if n > maxBytes {
			return nil, fmt.Errorf("compact integer of %d bytes exceeds %d", n, maxBytes)
		}
		le, err := r.readBytes(n)
		if err != nil {
			return nil, err
		}
		if le[n-1] == 0 {
			return nil, fmt.Errorf("non-canonical compact integer")
		}
		be := make([]byte, n)
		for i := range le {
			be[n-1-i] = le[i]
		}
		v := new(big.Int).SetBytes(be)
		if v.BitLen() <= 30 {
			return nil, fmt.Errorf("non-canonical compact integer")
		}
		return v, nil
	}
}

// appendCompact 编码 Compact 整数（v 必须非负）
func appendCompact(dst []byte, v *big.Int) []byte {
	switch {
	case v.BitLen() <= 6:
		return append(dst, byte(v.Uint64()<<2))
	case v.BitLen() <= 14:
		return binary.LittleEndian.AppendUint16(dst, uint16(v.Uint64()<<2)|0b01)
	case v.BitLen() <= 30:
		return binary.LittleEndian.AppendUint32(dst, uint32(v.Uint64()<<2)|0b10)
	default:
		be := v.Bytes()
		dst = append(dst, byte(len(be)-4)<<2|0b11)
		for i := len(be) - 1; i >= 0; i-- {
			dst = append(dst, be[i])
		}
		return dst
	}
}
