// Package program 策略程序侧 SDK
//
// 🎯 **核心职责**：
// 让 Go 编写的策略程序满足宿主的接口约定。程序只需实现 Program 接口并在 init 中调用 Register，
// 导出函数（evaluate / custom_hash / alloc）由本包在 TinyGo 构建下提供。
//
// 📋 **构建方式**：
//
//	tinygo build -target=wasip1 -buildmode=c-shared -o program.wasm ./programs/<name>/wasm
//
// 本包的纯 Go 部分（输入解码、错误归一化）在宿主侧同样可以直接测试。
package program

import (
	"errors"

	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

// MsgMalformedOracleData 预言机数据列表无法解码
const MsgMalformedOracleData = "oracle data list is malformed"

// Program 策略程序接口
type Program interface {
	// Evaluate 返回 nil 表示允许签名；返回 *types.ProgramError 以外的错误时按 Evaluation 处理
	Evaluate(req types.SignatureRequest, config []byte, oracleData [][]byte) error

	// CustomHash 返回 (digest, true) 表示提供自定义哈希，digest 必须为 32 字节
	CustomHash(data []byte) ([]byte, bool)
}

// NoCustomHash 可嵌入的默认实现：不提供自定义哈希
type NoCustomHash struct{}

// CustomHash 总是返回 None
func (NoCustomHash) CustomHash([]byte) ([]byte, bool) { return nil, false }

var registered Program

// Register 注册当前模块的策略程序，应在 init 中调用
func Register(p Program) {
	registered = p
}

// Registered 返回已注册的程序
func Registered() Program {
	return registered
}

// RunEvaluate 调用程序的 Evaluate 并把结果归一化为程序错误值
//
// oracleBlob 为 nil 表示未提供预言机数据；无法解码时返回 InvalidSignatureRequest。
// 未注册程序时返回 Evaluation 错误，避免空指针陷入。
func RunEvaluate(p Program, req types.SignatureRequest, config, oracleBlob []byte) *types.ProgramError {
	if p == nil {
		return types.NewEvaluationError("no program registered")
	}
	if req.Message == nil {
		req.Message = []byte{}
	}

	var oracleData [][]byte
	if oracleBlob != nil {
		decoded, err := abi.DecodeOracleData(oracleBlob)
		if err != nil {
			return types.NewInvalidSignatureRequest(MsgMalformedOracleData)
		}
		oracleData = decoded
	}

	return normalize(p.Evaluate(req, config, oracleData))
}

// RunCustomHash 调用程序的 CustomHash
func RunCustomHash(p Program, data []byte) ([]byte, bool) {
	if p == nil {
		return nil, false
	}
	if data == nil {
		data = []byte{}
	}
	return p.CustomHash(data)
}

func normalize(err error) *types.ProgramError {
	if err == nil {
		return nil
	}
	var perr *types.ProgramError
	if errors.As(err, &perr) {
		if !perr.Kind.Valid() {
			return types.NewEvaluationError(perr.Message)
		}
		return perr
	}
	return types.NewEvaluationError(err.Error())
}

// EvaluateResult 把 RunEvaluate 的结果编码为 evaluate 的返回值
//
// pin 负责把错误记录放到线性内存并返回其地址；宿主侧测试可以传入任意实现。
func EvaluateResult(perr *types.ProgramError, pin func([]byte) uint32) uint64 {
	if perr == nil {
		return abi.Ok
	}
	record := abi.EncodeErrorRecord(perr)
	return abi.Pack(pin(record), uint32(len(record)))
}

// CustomHashResult 把 RunCustomHash 的结果编码为 custom_hash 的返回值
func CustomHashResult(digest []byte, ok bool, pin func([]byte) uint32) uint64 {
	if !ok {
		return abi.None
	}
	return abi.Pack(pin(digest), uint32(len(digest)))
}
