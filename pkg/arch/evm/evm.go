// Package evm 以太坊系链的架构实现
//
// 🎯 **核心职责**：
// 把签名请求中的十六进制文本解析为未签名交易，并给出接收方地址供 ACL 评估。
//
// 📋 **支持的载荷**（十六进制，可带 0x 前缀）：
//   - 传统交易：rlp([nonce, gasPrice, gas, to, value, data]) 或带 EIP-155 的 9 字段形式 [..., chainId, 0, 0]
//   - EIP-2930：0x01 || rlp([chainId, nonce, gasPrice, gas, to, value, data, accessList])
//   - EIP-1559：0x02 || rlp([chainId, nonce, maxPriorityFee, maxFee, gas, to, value, data, accessList])
//
// ⚠️ 接收方为可读名称（ENS）的交易不被支持：名称解析需要链上查询，调用方应先解析为地址。
package evm

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/policyvm/pkg/arch"
)

// Name 架构名称
const Name = "evm"

// Address 地址展示形式
type Address = common.Address

// AddressRaw 地址原始形式
type AddressRaw = [common.AddressLength]byte

// Evm 以太坊系链架构
type Evm struct{}

var _ arch.Architecture[Address, AddressRaw, *TransactionRequest] = Evm{}

// Name 架构名称
func (Evm) Name() string { return Name }

// AddressFromRaw 由原始字节构造地址
func (Evm) AddressFromRaw(raw AddressRaw) Address { return Address(raw) }

// AddressToRaw 取地址原始字节
func (Evm) AddressToRaw(addr Address) AddressRaw { return AddressRaw(addr) }

// Parse 从十六进制文本解析交易请求
func (Evm) Parse(text string) (*TransactionRequest, error) {
	return ParseTransaction(text)
}

// TryParse 从签名请求载荷解析交易请求
func (Evm) TryParse(b []byte) (*TransactionRequest, error) {
	return TryParseTransaction(b)
}
