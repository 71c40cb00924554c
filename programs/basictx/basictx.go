// Package basictx 以太坊交易接收方允许列表程序
//
// 🎯 **评估流程**：
//  1. 把消息解析为 EVM 未签名交易（十六进制文本）
//  2. 配置存在时按 JSON 解析 ACL，否则使用内置允许列表
//  3. 用 ACL 评估交易接收方
package basictx

import (
	"github.com/weisyn/policyvm/pkg/acl"
	"github.com/weisyn/policyvm/pkg/arch/evm"
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/pkg/types"
)

// allowlisted 内置允许列表中的唯一地址
var allowlisted = evm.AddressRaw{
	0x77, 0x2b, 0x9a, 0x9e, 0x8a, 0xa1, 0xc9, 0xdb, 0x86, 0x1c,
	0x66, 0x11, 0xa8, 0x2d, 0x25, 0x1d, 0xb4, 0xfa, 0xc9, 0x90,
}

// Program 交易允许列表程序
type Program struct {
	program.NoCustomHash
}

// DefaultAcl 内置允许列表
func DefaultAcl() acl.Acl[evm.Address] {
	raw := acl.Default[evm.AddressRaw]()
	raw.Addresses = []evm.AddressRaw{allowlisted}
	return acl.FromRaw[evm.AddressRaw, evm.Address](evm.Evm{}, raw)
}

// Evaluate 评估交易接收方
func (Program) Evaluate(req types.SignatureRequest, config []byte, _ [][]byte) error {
	tx, err := evm.Evm{}.TryParse(req.Message)
	if err != nil {
		return err
	}

	list := DefaultAcl()
	if config != nil {
		if list, err = acl.ParseJSON[evm.Address](config); err != nil {
			return err
		}
	}
	return list.IsSatisfiedBy(tx)
}
