package substrate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// SS58 地址格式
//
// base58(prefix || account_id || checksum)，
// checksum = blake2b-512("SS58PRE" || prefix || account_id) 的前 2 字节。
// prefix < 64 占 1 字节，64..16383 占 2 字节。

const (
	// DefaultPrefix 通用 Substrate 网络前缀
	DefaultPrefix uint16 = 42

	// maxPrefix 两字节编码可表示的最大前缀
	maxPrefix uint16 = 16383

	checksumLength = 2
)

var ss58Preimage = []byte("SS58PRE")

var (
	// ErrInvalidAddress SS58 地址不合法
	ErrInvalidAddress = errors.New("invalid ss58 address")
)

// EncodeSS58 按网络前缀编码账户
func EncodeSS58(prefix uint16, id AccountID) (string, error) {
	var payload []byte
	switch {
	case prefix < 64:
		payload = []byte{byte(prefix)}
	case prefix <= maxPrefix:
		first := byte((prefix&0b0000_0000_1111_1100)>>2) | 0b0100_0000
		second := byte(prefix>>8) | byte((prefix&0b0000_0000_0000_0011)<<6)
		payload = []byte{first, second}
	default:
		return "", fmt.Errorf("%w: prefix %d out of range", ErrInvalidAddress, prefix)
	}
	payload = append(payload, id[:]...)
	payload = append(payload, ss58Checksum(payload)...)
	return base58.Encode(payload), nil
}

// DecodeSS58 解码 SS58 地址，返回网络前缀与账户
func DecodeSS58(addr string) (uint16, AccountID, error) {
	var id AccountID
	raw := base58.Decode(addr)
	if len(raw) == 0 {
		return 0, id, fmt.Errorf("%w: not base58", ErrInvalidAddress)
	}

	var prefix uint16
	var prefixLen int
	switch b0 := raw[0]; {
	case b0 < 64:
		prefix, prefixLen = uint16(b0), 1
	case b0 < 128:
		if len(raw) < 2 {
			return 0, id, fmt.Errorf("%w: truncated prefix", ErrInvalidAddress)
		}
		b1 := raw[1]
		lower := (b0 << 2) | (b1 >> 6)
		upper := b1 & 0b0011_1111
		prefix, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return 0, id, fmt.Errorf("%w: reserved prefix byte %d", ErrInvalidAddress, b0)
	}

	if len(raw) != prefixLen+len(id)+checksumLength {
		return 0, id, fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(raw))
	}
	body := raw[:len(raw)-checksumLength]
	if !bytes.Equal(ss58Checksum(body), raw[len(raw)-checksumLength:]) {
		return 0, id, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	copy(id[:], body[prefixLen:])
	return prefix, id, nil
}

func ss58Checksum(payload []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Preimage)
	h.Write(payload)
	return h.Sum(nil)[:checksumLength]
}
