// Package types provides policy program type definitions.
package types

// 策略程序相关类型定义
//
// 🎯 **策略程序类型系统**
//
// 为策略运行时提供标准的数据结构定义，
// 覆盖签名请求、程序调用输入与单次执行上下文的生命周期状态。

// SignatureRequest 签名请求
//
// 每次调用构造一次，运行时不做持久化。
//
// 📋 **可选字段约定**：
//   - AuxiliaryData == nil 表示"未提供"
//   - AuxiliaryData 非 nil（包括长度为0）表示"已提供"
type SignatureRequest struct {
	// Message 待签名的原始载荷（或先哈希再签名的原像）
	Message []byte `json:"message"`

	// AuxiliaryData 程序自定义的旁路输入（例如联署签名、证明）
	AuxiliaryData []byte `json:"auxiliary_data,omitempty"`
}

// HasAuxiliaryData 是否提供了辅助数据
func (r SignatureRequest) HasAuxiliaryData() bool {
	return r.AuxiliaryData != nil
}

// EvaluateInput 一次 evaluate 调用的完整输入
//
// Config / OracleData 为 nil 时表示未提供，语义由程序自行解释。
type EvaluateInput struct {
	Request    SignatureRequest
	Config     []byte
	OracleData [][]byte
}

// ExecutionState 单次执行上下文的生命周期状态
//
// Idle → Validating → Instantiated → Running → {Completed | Failed | Aborted}
//
// 程序返回 Ok 或 Err 都是 Completed；Failed 只表示宿主侧错误。
type ExecutionState string

const (
	ExecutionStateIdle         ExecutionState = "idle"         // 尚未开始
	ExecutionStateValidating   ExecutionState = "validating"   // 字节码校验与插桩
	ExecutionStateInstantiated ExecutionState = "instantiated" // 已实例化，尚未进入入口函数
	ExecutionStateRunning      ExecutionState = "running"      // 入口函数执行中（燃料递减）
	ExecutionStateCompleted    ExecutionState = "completed"    // 程序正常返回（Ok 或 Err）
	ExecutionStateFailed       ExecutionState = "failed"       // 宿主侧错误（字节码、绑定、陷入）
	ExecutionStateAborted      ExecutionState = "aborted"      // 燃料耗尽/超时被强制中止
)

// ExecutionReport 单次执行的可观测信息
//
// 仅用于日志与指标，不影响授权结果。
type ExecutionReport struct {
	ExecutionID  string         `json:"execution_id"`
	EntryPoint   string         `json:"entry_point"`
	State        ExecutionState `json:"state"`
	FuelBudget   uint64         `json:"fuel_budget"`
	FuelConsumed uint64         `json:"fuel_consumed"`
	Duration     int64          `json:"duration"` // 纳秒
}
