// Package auxiliary 要求签名请求携带辅助数据的策略程序
//
// 先检查消息长度，再检查辅助数据是否提供；提供空的辅助数据同样视为已提供。
package auxiliary

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/pkg/types"
)

const (
	// MinLength 允许签名的最短消息长度
	MinLength = 10

	// MsgTooShort 消息过短
	MsgTooShort = "Length of message is too short."

	// MsgMissingAuxiliary 未提供辅助数据
	MsgMissingAuxiliary = "This program requires that `auxilary_data` be `Some`."
)

// Program 辅助数据策略程序
type Program struct {
	program.NoCustomHash
}

// Evaluate 检查消息长度与辅助数据
func (Program) Evaluate(req types.SignatureRequest, _ []byte, _ [][]byte) error {
	if len(req.Message) < MinLength {
		return types.NewEvaluationError(MsgTooShort)
	}
	if !req.HasAuxiliaryData() {
		return types.NewEvaluationError(MsgMissingAuxiliary)
	}
	return nil
}
