// Package oracle 读取预言机数据的策略程序
//
// 第一项预言机数据为 SCALE 编码的 u32 区块高度（小端 4 字节），高度不超过 MaxBlockNumber 时允许签名。
package oracle

import (
	"encoding/binary"

	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/pkg/types"
)

// MaxBlockNumber 允许签名的最大区块高度
const MaxBlockNumber = 100

// 拒绝消息
const (
	MsgNoOracleData = "No oracle data provided."
	MsgUndecodable  = "Unable to decode oracle data"
	MsgBlockTooHigh = "Block Number too large"
)

// Program 预言机策略程序
type Program struct {
	program.NoCustomHash
}

// Evaluate 检查预言机给出的区块高度
func (Program) Evaluate(_ types.SignatureRequest, _ []byte, oracleData [][]byte) error {
	if len(oracleData) == 0 {
		return types.NewEvaluationError(MsgNoOracleData)
	}
	block, err := DecodeBlockNumber(oracleData[0])
	if err != nil {
		return err
	}
	if block > MaxBlockNumber {
		return types.NewEvaluationError(MsgBlockTooHigh)
	}
	return nil
}

// DecodeBlockNumber 解码 SCALE u32，多余的尾部字节被忽略
func DecodeBlockNumber(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, types.NewEvaluationError(MsgUndecodable)
	}
	return binary.LittleEndian.Uint32(b[:4]), nil
}

// EncodeBlockNumber 编码 SCALE u32
func EncodeBlockNumber(n uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, n)
}
