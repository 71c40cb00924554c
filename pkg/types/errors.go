package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                           宿主/资源类错误（系统性错误）
// ============================================================================
//
// 这些错误表示输入错误、实现缺陷或预算不足，而不是策略决定。
// 调用方应告警或调整输入后重试（OutOfFuel 可以用更大的预算重试）。

var (
	// ErrEmptyBytecode 程序字节码长度为0
	ErrEmptyBytecode = errors.New("bytecode length is zero")

	// ErrInvalidBytecode 字节码不是合法的WASM模块，或导入了宿主接口之外的能力
	ErrInvalidBytecode = errors.New("invalid bytecode")

	// ErrOutOfFuel 执行耗尽燃料预算
	ErrOutOfFuel = errors.New("out of fuel")

	// ErrBindings 模块导出与程序接口约定不一致（入口缺失、签名不匹配、返回值越界）
	ErrBindings = errors.New("program interface binding failed")

	// ErrTrap 程序在燃料耗尽之外的原因陷入异常（panic、unreachable、越界访问）
	ErrTrap = errors.New("program trapped")

	// ErrTimeout 执行超过墙钟时限或调用方取消
	ErrTimeout = errors.New("program execution timed out")

	// ErrResourceExhausted 无法为输入分配线性内存
	ErrResourceExhausted = errors.New("program resources exhausted")

	// ErrProgram 程序自身返回的错误（策略拒绝或输入解析失败）
	ErrProgram = errors.New("runtime error")
)

// ============================================================================
//                           程序返回的错误值
// ============================================================================

// ProgramErrorKind 跨越字节码边界的错误标签
type ProgramErrorKind uint8

const (
	// InvalidTransactionRequest 交易请求格式错误
	InvalidTransactionRequest ProgramErrorKind = 1
	// InvalidSignatureRequest 签名请求格式错误
	InvalidSignatureRequest ProgramErrorKind = 2
	// Evaluation 策略拒绝
	Evaluation ProgramErrorKind = 3
)

// String 返回标签名称
func (k ProgramErrorKind) String() string {
	switch k {
	case InvalidTransactionRequest:
		return "InvalidTransactionRequest"
	case InvalidSignatureRequest:
		return "InvalidSignatureRequest"
	case Evaluation:
		return "Evaluation"
	default:
		return fmt.Sprintf("ProgramErrorKind(%d)", uint8(k))
	}
}

// Valid 是否为已定义的标签
func (k ProgramErrorKind) Valid() bool {
	return k >= InvalidTransactionRequest && k <= Evaluation
}

// ProgramError 程序返回的带标签错误
type ProgramError struct {
	Kind    ProgramErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// Error 实现 error 接口
func (e *ProgramError) Error() string {
	return fmt.Sprintf("Error::%s(%q)", e.Kind, e.Message)
}

// NewInvalidTransactionRequest 构造交易请求格式错误
func NewInvalidTransactionRequest(msg string) *ProgramError {
	return &ProgramError{Kind: InvalidTransactionRequest, Message: msg}
}

// NewInvalidSignatureRequest 构造签名请求格式错误
func NewInvalidSignatureRequest(msg string) *ProgramError {
	return &ProgramError{Kind: InvalidSignatureRequest, Message: msg}
}

// NewEvaluationError 构造策略拒绝错误
func NewEvaluationError(msg string) *ProgramError {
	return &ProgramError{Kind: Evaluation, Message: msg}
}

// ============================================================================
//                               错误包装与分类
// ============================================================================

// WrapProgramError 将程序错误原样包装为运行时错误
func WrapProgramError(perr *ProgramError) error {
	return fmt.Errorf("%w: %w", ErrProgram, perr)
}

// WrapInvalidBytecodeError 包装字节码无效错误
func WrapInvalidBytecodeError(size int, err error) error {
	return fmt.Errorf("%w: size=%d bytes, cause=%v", ErrInvalidBytecode, size, err)
}

// WrapBindingsError 包装接口绑定错误
func WrapBindingsError(export string, reason string) error {
	return fmt.Errorf("%w: export=%s, reason=%s", ErrBindings, export, reason)
}

// WrapOutOfFuelError 包装燃料耗尽错误
func WrapOutOfFuelError(entry string, budget uint64) error {
	return fmt.Errorf("%w: entry=%s, budget=%d", ErrOutOfFuel, entry, budget)
}

// WrapTrapError 包装程序陷入异常错误
func WrapTrapError(entry string, err error) error {
	return fmt.Errorf("%w: entry=%s, cause=%v", ErrTrap, entry, err)
}

// WrapTimeoutError 包装超时错误
func WrapTimeoutError(entry string, err error) error {
	return fmt.Errorf("%w: entry=%s, cause=%v", ErrTimeout, entry, err)
}

// WrapResourceExhaustedError 包装资源耗尽错误
func WrapResourceExhaustedError(resource string, err error) error {
	return fmt.Errorf("%w: resource=%s, cause=%v", ErrResourceExhausted, resource, err)
}

// AsProgramError 提取程序返回的错误值
func AsProgramError(err error) (*ProgramError, bool) {
	var perr *ProgramError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// IsPolicyRejection 是否为程序给出的拒绝（包括程序自身的输入解析错误）
func IsPolicyRejection(err error) bool {
	return errors.Is(err, ErrProgram)
}

// IsSystemic 是否为宿主/资源类错误
//
// 系统性错误需要告警而不是作为普通拒绝上报；两类错误都不能签名。
func IsSystemic(err error) bool {
	return err != nil && !IsPolicyRejection(err)
}
