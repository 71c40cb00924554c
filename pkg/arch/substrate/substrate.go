// Package substrate Substrate 系链的架构实现
//
// 🎯 **核心职责**：
// 解析 Balances 转账调用的 SCALE 编码调用数据，给出接收方 SS58 地址供 ACL 评估。
//
// 📋 **支持的调用**（十六进制文本，可带 0x 前缀）：
//
//	[pallet u8][call u8][dest MultiAddress][value Compact<u128>]
//
//   - Balances.transfer_allow_death（call 0）
//   - Balances.transfer_keep_alive（call 3）
//
// ⚠️ MultiAddress::Index 需要链上查询才能得到账户，按"未解析的名称"拒绝；
// Raw / Address20 在 AccountId32 链上没有对应账户，同样拒绝。
package substrate

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/weisyn/policyvm/pkg/arch"
	"github.com/weisyn/policyvm/pkg/types"
)

// Name 架构名称
const Name = "substrate"

// DefaultBalancesPallet Polkadot 运行时中 Balances 模块的索引
const DefaultBalancesPallet uint8 = 5

// MsgIndexRecipient 接收方为账户索引
const MsgIndexRecipient = "Account index recipients not supported. Resolve to an account id first."

// 调用索引
const (
	CallTransferAllowDeath uint8 = 0
	CallTransferKeepAlive  uint8 = 3
)

// MultiAddress 变体
const (
	multiAddressID        byte = 0x00
	multiAddressIndex     byte = 0x01
	multiAddressRaw       byte = 0x02
	multiAddressAddress32 byte = 0x03
	multiAddressAddress20 byte = 0x04
)

// AccountID 地址原始形式（32 字节公钥）
type AccountID [32]byte

// Address 地址展示形式（SS58 文本）
type Address string

// Substrate Substrate 系链架构
//
// 零值可用：前缀 0 与 Balances 索引 0 会被替换为默认值 42 / 5。
// 前缀 0（Polkadot）需要通过 NewWithPrefix 显式指定。
type Substrate struct {
	prefix         uint16
	prefixSet      bool
	balancesPallet uint8
}

var _ arch.Architecture[Address, AccountID, *TransactionRequest] = Substrate{}

// New 使用默认前缀与 Balances 索引创建架构
func New() Substrate {
	return Substrate{prefix: DefaultPrefix, prefixSet: true, balancesPallet: DefaultBalancesPallet}
}

// NewWithPrefix 指定网络前缀与 Balances 模块索引
func NewWithPrefix(prefix uint16, balancesPallet uint8) (Substrate, error) {
	if prefix > maxPrefix {
		return Substrate{}, fmt.Errorf("%w: prefix %d out of range", ErrInvalidAddress, prefix)
	}
	return Substrate{prefix: prefix, prefixSet: true, balancesPallet: balancesPallet}, nil
}

// Prefix 网络前缀
func (s Substrate) Prefix() uint16 {
	if !s.prefixSet {
		return DefaultPrefix
	}
	return s.prefix
}

// BalancesPallet Balances 模块索引
func (s Substrate) BalancesPallet() uint8 {
	if !s.prefixSet {
		return DefaultBalancesPallet
	}
	return s.balancesPallet
}

// Name 架构名称
func (Substrate) Name() string { return Name }

// AddressFromRaw 按本架构的网络前缀编码账户
func (s Substrate) AddressFromRaw(raw AccountID) Address {
	// 前缀在构造时已校验，编码不会失败
	addr, _ := EncodeSS58(s.Prefix(), raw)
	return Address(addr)
}

// AddressToRaw 取地址对应的账户；非法地址返回零值账户
func (s Substrate) AddressToRaw(addr Address) AccountID {
	_, id, err := DecodeSS58(string(addr))
	if err != nil {
		return AccountID{}
	}
	return id
}

// ParseAddress 校验并规范化 SS58 地址（转换为本架构的网络前缀）
func (s Substrate) ParseAddress(text string) (Address, error) {
	_, id, err := DecodeSS58(strings.TrimSpace(text))
	if err != nil {
		return "", err
	}
	return s.AddressFromRaw(id), nil
}

// Parse 从十六进制文本解析转账调用
func (s Substrate) Parse(text string) (*TransactionRequest, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	raw, err := hex.DecodeString(text)
	if err != nil {
		return nil, invalid("call data is not valid hex: %v", err)
	}
	return s.DecodeCall(raw)
}

// TryParse 载荷须为 UTF-8 文本，然后按 Parse 解析
func (s Substrate) TryParse(b []byte) (*TransactionRequest, error) {
	if !utf8.Valid(b) {
		return nil, invalid("call data is not valid utf-8")
	}
	return s.Parse(string(b))
}

// DecodeCall 解码二进制调用数据
func (s Substrate) DecodeCall(raw []byte) (*TransactionRequest, error) {
	r := &scaleReader{buf: raw}

	pallet, err := r.readByte()
	if err != nil {
		return nil, invalid("call data is empty")
	}
	call, err := r.readByte()
	if err != nil {
		return nil, invalid("call index missing")
	}
	if pallet != s.BalancesPallet() || (call != CallTransferAllowDeath && call != CallTransferKeepAlive) {
		return nil, invalid("unsupported call %d.%d", pallet, call)
	}

	dest, err := s.decodeMultiAddress(r)
	if err != nil {
		return nil, err
	}
	value, err := r.readCompact(16)
	if err != nil {
		return nil, invalid("unable to decode transfer value: %v", err)
	}
	if r.remaining() != 0 {
		return nil, invalid("%d trailing bytes after call", r.remaining())
	}

	return &TransactionRequest{
		call:   call,
		dest:   s.AddressFromRaw(dest),
		destID: dest,
		value:  value,
	}, nil
}

func (s Substrate) decodeMultiAddress(r *scaleReader) (AccountID, error) {
	var id AccountID
	variant, err := r.readByte()
	if err != nil {
		return id, invalid("destination missing")
	}
	switch variant {
	case multiAddressID, multiAddressAddress32:
		b, err := r.readBytes(len(id))
		if err != nil {
			return id, invalid("unable to decode destination: %v", err)
		}
		copy(id[:], b)
		return id, nil
	case multiAddressIndex:
		return id, types.NewInvalidTransactionRequest(MsgIndexRecipient)
	case multiAddressRaw, multiAddressAddress20:
		return id, invalid("destination variant %d has no account id", variant)
	default:
		return id, invalid("unknown destination variant %d", variant)
	}
}

// EncodeTransfer 编码转账调用（客户端与测试构造载荷使用）
func (s Substrate) EncodeTransfer(call uint8, dest AccountID, value *big.Int) []byte {
	out := []byte{s.BalancesPallet(), call, multiAddressID}
	out = append(out, dest[:]...)
	return appendCompact(out, value)
}

func invalid(format string, args ...interface{}) error {
	return types.NewInvalidTransactionRequest(fmt.Sprintf(format, args...))
}

// TransactionRequest 已解析的转账调用
type TransactionRequest struct {
	call   uint8
	dest   Address
	destID AccountID
	value  *big.Int
}

// Sender 调用数据不包含签名方
func (t *TransactionRequest) Sender() (Address, bool) { return "", false }

// Receiver 转账接收方
func (t *TransactionRequest) Receiver() (Address, bool) { return t.dest, true }

// ReceiverAccountID 接收方账户
func (t *TransactionRequest) ReceiverAccountID() AccountID { return t.destID }

// Call 调用索引
func (t *TransactionRequest) Call() uint8 { return t.call }

// KeepAlive 是否为 transfer_keep_alive
func (t *TransactionRequest) KeepAlive() bool { return t.call == CallTransferKeepAlive }

// Value 转账金额（最小单位）
func (t *TransactionRequest) Value() *big.Int { return new(big.Int).Set(t.value) }
