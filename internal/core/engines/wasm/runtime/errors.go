package runtime

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/weisyn/policyvm/internal/core/engines/wasm/metering"
	"github.com/weisyn/policyvm/pkg/types"
)

// 程序自定义哈希的固定错误消息
const (
	MsgCustomHashNone   = "`custom-hash` returns `None`. Implement the hash function in your program, or select a predefined `hash` in your signature request."
	MsgCustomHashLength = "`custom-hash` must return a byte vector of length 32, not %d."
)

// isClassified 错误是否已经是对外的类型化错误
func isClassified(err error) bool {
	for _, target := range []error{
		types.ErrEmptyBytecode,
		types.ErrInvalidBytecode,
		types.ErrOutOfFuel,
		types.ErrBindings,
		types.ErrTrap,
		types.ErrTimeout,
		types.ErrResourceExhausted,
		types.ErrProgram,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classifyCallError 将程序调用失败映射为类型化错误
//
// 判定顺序：
//  1. 上下文超时/取消导致的模块关闭 → ErrTimeout
//  2. 燃料全局变量为负 → ErrOutOfFuel（无论陷入发生在 start、alloc 还是入口函数）
//  3. 调用方上下文已结束 → ErrTimeout
//  4. 其余陷入 → ErrTrap
func classifyCallError(ctx context.Context, mod api.Module, entry string, budget uint64, err error) error {
	if isClassified(err) {
		return err
	}

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case sys.ExitCodeDeadlineExceeded, sys.ExitCodeContextCanceled:
			return types.WrapTimeoutError(entry, err)
		}
	}

	if raw, ok := readFuel(mod); ok && metering.Exhausted(raw) {
		return types.WrapOutOfFuelError(entry, budget)
	}

	if ctx.Err() != nil {
		return types.WrapTimeoutError(entry, err)
	}
	return types.WrapTrapError(entry, err)
}

// readFuel 读取燃料全局变量
func readFuel(mod api.Module) (uint64, bool) {
	if mod == nil {
		return 0, false
	}
	g := mod.ExportedGlobal(metering.FuelExport)
	if g == nil {
		return 0, false
	}
	return g.Get(), true
}
