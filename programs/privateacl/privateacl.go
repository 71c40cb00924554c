// Package privateacl 哈希化允许列表程序
//
// 允许列表只保存地址的 BLAKE2s-256 摘要：任何人都能验证某个地址是否在列表中，
// 但无法从字节码中直接读出地址。
package privateacl

import (
	"golang.org/x/crypto/blake2s"

	"github.com/weisyn/policyvm/pkg/arch/evm"
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/pkg/types"
)

const (
	// MsgNoRecipient 合约创建交易没有接收方
	MsgNoRecipient = "No recipient given in transaction"

	// MsgNotListed 接收方摘要不在列表中
	MsgNotListed = "Address not in allow list"
)

// Program 哈希化允许列表程序
type Program struct {
	program.NoCustomHash
}

// HashAddress 计算地址摘要
func HashAddress(addr evm.Address) [blake2s.Size]byte {
	return blake2s.Sum256(addr.Bytes())
}

// Allowed 摘要是否在允许列表中
func Allowed(digest [blake2s.Size]byte) bool {
	for _, candidate := range allowedHashes {
		if candidate == digest {
			return true
		}
	}
	return false
}

// Evaluate 评估交易接收方
func (Program) Evaluate(req types.SignatureRequest, _ []byte, _ [][]byte) error {
	tx, err := evm.Evm{}.TryParse(req.Message)
	if err != nil {
		return err
	}

	to, ok := tx.Receiver()
	if !ok {
		return types.NewEvaluationError(MsgNoRecipient)
	}
	if !Allowed(HashAddress(to)) {
		return types.NewEvaluationError(MsgNotListed)
	}
	return nil
}
