package metering

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedModule 字节码不是合法的 WASM 二进制模块
	ErrMalformedModule = errors.New("malformed wasm module")

	// ErrUnsupportedFeature 字节码使用了运行时不支持的提案（线程、异常处理、GC）
	ErrUnsupportedFeature = errors.New("unsupported wasm feature")

	// ErrReservedName 模块占用了计量保留的导出名或全局变量
	ErrReservedName = errors.New("reserved metering name")
)

// WrapMalformedError 包装模块格式错误
func WrapMalformedError(where string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedModule, where, err)
}

// WrapUnsupportedError 包装不支持的指令
func WrapUnsupportedError(where string, opcode string) error {
	return fmt.Errorf("%w: %s: opcode %s", ErrUnsupportedFeature, where, opcode)
}
