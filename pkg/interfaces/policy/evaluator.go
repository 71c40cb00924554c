// Package policy 定义签名协调方依赖的策略求值接口
package policy

import (
	"context"

	"github.com/weisyn/policyvm/pkg/types"
)

// Evaluator 策略程序求值器
//
// 调用方只在 Evaluate 返回 nil 时签名。任何错误（程序拒绝或系统性错误）都表示不签名；
// 可用 types.IsSystemic 区分需要告警的错误。
type Evaluator interface {
	// Evaluate 在全新的执行上下文中运行程序的 evaluate 入口
	Evaluate(ctx context.Context, program []byte, req types.SignatureRequest, config []byte, oracleData [][]byte) error

	// CustomHash 运行程序的 custom_hash 入口，返回 32 字节摘要
	CustomHash(ctx context.Context, program []byte, message []byte) ([32]byte, error)
}
