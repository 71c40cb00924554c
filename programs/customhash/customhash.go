// Package customhash 使用自定义哈希函数的策略程序
//
// 宿主对签名载荷调用 custom_hash 取得 32 字节摘要，这里使用 BLAKE2b-256。
package customhash

import (
	"golang.org/x/crypto/blake2b"

	"github.com/weisyn/policyvm/pkg/types"
)

// MsgEmpty 消息为空
const MsgEmpty = "You need to give me SOME data to sign!"

// Program 自定义哈希策略程序
type Program struct{}

// Evaluate 任何非空消息都允许签名
func (Program) Evaluate(req types.SignatureRequest, _ []byte, _ [][]byte) error {
	if len(req.Message) == 0 {
		return types.NewEvaluationError(MsgEmpty)
	}
	return nil
}

// CustomHash 返回 BLAKE2b-256 摘要
func (Program) CustomHash(data []byte) ([]byte, bool) {
	digest := blake2b.Sum256(data)
	return digest[:], true
}
