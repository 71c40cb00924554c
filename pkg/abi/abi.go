// Package abi 定义宿主与策略程序之间的调用约定
//
// 🎯 **核心职责**：
// 描述跨越字节码边界的所有数据形态，宿主（pkg/runtime）与程序侧 SDK（pkg/program）共用同一份定义。
//
// 📋 **导出约定**：
//   - memory：程序线性内存
//   - evaluate(msg_ptr, msg_len, aux_ptr, aux_len, cfg_ptr, cfg_len, oracle_ptr, oracle_len i32) -> i64
//   - custom_hash(data_ptr, data_len i32) -> i64
//   - alloc(size i32) -> i32（可选）；未导出时宿主扩容线性内存写入输入，
//     因此初始内存已达页数上限的程序必须导出 alloc 才能接收非空输入
//
// 📋 **取值约定**：
//   - 长度为 -1 表示该输入"未提供"；长度为 0 表示"提供了空值"
//   - evaluate 返回 0 表示 Ok，否则为指向错误记录的打包指针 ptr<<32 | len
//   - custom_hash 返回 -1 表示 None，否则为指向摘要的打包指针
//   - 错误记录布局：[kind u8][utf-8 message]
package abi

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/weisyn/policyvm/pkg/types"
)

// 导出名称
const (
	ExportMemory     = "memory"
	ExportEvaluate   = "evaluate"
	ExportCustomHash = "custom_hash"
	ExportAlloc      = "alloc"

	// ExportInitialize 反应器模块（TinyGo/Rust wasip1 产物）的初始化函数
	ExportInitialize = "_initialize"
)

// WASIModuleName 唯一允许导入的宿主模块
const WASIModuleName = "wasi_snapshot_preview1"

const (
	// Absent 长度参数取该值表示输入未提供
	Absent int32 = -1

	// Ok evaluate 的成功返回值
	Ok uint64 = 0

	// None custom_hash 的"无摘要"返回值（i64 -1）
	None uint64 = ^uint64(0)

	// HashLength custom_hash 必须返回的摘要长度
	HashLength = 32

	// oracleField 预言机数据列表的 protobuf 字段号（repeated bytes）
	oracleField protowire.Number = 1
)

var (
	// ErrMalformedRecord 错误记录格式不合法
	ErrMalformedRecord = errors.New("malformed error record")

	// ErrMalformedOracleData 预言机数据列表格式不合法
	ErrMalformedOracleData = errors.New("malformed oracle data")
)

// Pack 将指针与长度打包为 i64 返回值
func Pack(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// Unpack 拆分打包指针
func Unpack(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}

// EncodeErrorRecord 编码程序错误记录
func EncodeErrorRecord(perr *types.ProgramError) []byte {
	record := make([]byte, 0, 1+len(perr.Message))
	record = append(record, byte(perr.Kind))
	return append(record, perr.Message...)
}

// DecodeErrorRecord 解码程序错误记录
//
// 未知标签、空记录或非 UTF-8 消息均视为格式错误：调用方应按接口绑定错误处理。
func DecodeErrorRecord(record []byte) (*types.ProgramError, error) {
	if len(record) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedRecord)
	}
	kind := types.ProgramErrorKind(record[0])
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformedRecord, record[0])
	}
	msg := record[1:]
	if !utf8.Valid(msg) {
		return nil, fmt.Errorf("%w: message is not valid utf-8", ErrMalformedRecord)
	}
	return &types.ProgramError{Kind: kind, Message: string(msg)}, nil
}

// EncodeOracleData 编码预言机数据列表
//
// nil 列表编码为 nil（调用方据此传入 Absent）；空列表编码为空切片，顺序保持不变。
func EncodeOracleData(items [][]byte) []byte {
	if items == nil {
		return nil
	}
	out := []byte{}
	for _, item := range items {
		out = protowire.AppendTag(out, oracleField, protowire.BytesType)
		out = protowire.AppendBytes(out, item)
	}
	return out
}

// DecodeOracleData 解码预言机数据列表
func DecodeOracleData(b []byte) ([][]byte, error) {
	items := [][]byte{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOracleData, protowire.ParseError(n))
		}
		if num != oracleField || typ != protowire.BytesType {
			return nil, fmt.Errorf("%w: unexpected field %d (wire type %d)", ErrMalformedOracleData, num, typ)
		}
		b = b[n:]

		item, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOracleData, protowire.ParseError(m))
		}
		items = append(items, append([]byte{}, item...))
		b = b[m:]
	}
	return items, nil
}
