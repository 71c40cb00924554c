// Package infiniteloop 永不返回的策略程序，用于验证燃料预算总能中止执行
package infiniteloop

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/pkg/types"
)

// spins 包级变量，防止编译器消除循环体
var spins uint64

// Program 无限循环程序
type Program struct {
	program.NoCustomHash
}

// Evaluate 不会返回
func (Program) Evaluate(types.SignatureRequest, []byte, [][]byte) error {
	for {
		spins++
	}
}
