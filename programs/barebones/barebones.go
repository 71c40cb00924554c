// Package barebones 最小的策略程序：消息长度不少于 10 字节即允许签名
package barebones

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/pkg/types"
)

// MinLength 允许签名的最短消息长度
const MinLength = 10

// MsgTooShort 消息过短
const MsgTooShort = "Length of data is too short."

// Program 最小策略程序
type Program struct {
	program.NoCustomHash
}

var _ program.Program = Program{}

// Evaluate 只检查消息长度
func (Program) Evaluate(req types.SignatureRequest, _ []byte, _ [][]byte) error {
	if len(req.Message) < MinLength {
		return types.NewEvaluationError(MsgTooShort)
	}
	return nil
}
