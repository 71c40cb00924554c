// Package acl 提供链无关的地址允许/拒绝列表评估
//
// 🎯 **评估规则**（按顺序）：
//  1. 交易没有接收方：AllowNullRecipient 为真则通过，否则拒绝 "Null recipients are not allowed."
//  2. 接收方在列表中且为 Allow，或不在列表中且为 Deny：通过
//  3. 其余情况拒绝 "Transaction not allowed."
//
// 空接收方的判定先于成员判定；两者互不影响。
package acl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weisyn/policyvm/pkg/types"
)

const (
	// MsgNullRecipient 空接收方被拒绝
	MsgNullRecipient = "Null recipients are not allowed."

	// MsgNotAllowed 接收方不满足列表规则
	MsgNotAllowed = "Transaction not allowed."
)

// Kind 列表类型
type Kind uint8

const (
	// Allow 只允许列表中的地址
	Allow Kind = iota
	// Deny 拒绝列表中的地址
	Deny
)

// String 返回列表类型的文本形式
func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// MarshalText 实现 encoding.TextMarshaler（JSON/YAML 共用）
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case Allow, Deny:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("unknown acl kind %d", uint8(k))
	}
}

// UnmarshalText 实现 encoding.TextUnmarshaler，大小写不敏感
func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "allow":
		*k = Allow
	case "deny":
		*k = Deny
	default:
		return fmt.Errorf("unknown acl kind %q", string(b))
	}
	return nil
}

// Recipient 能够给出接收方地址的交易
type Recipient[A comparable] interface {
	Receiver() (A, bool)
}

// Acl 地址允许/拒绝列表
//
// 地址可重复，顺序无关。
type Acl[A comparable] struct {
	Addresses          []A  `json:"addresses" yaml:"addresses"`
	Kind               Kind `json:"kind" yaml:"kind"`
	AllowNullRecipient bool `json:"allow_null_recipient" yaml:"allow_null_recipient"`
}

// Default 返回默认列表：空的允许列表且不允许空接收方，拒绝一切交易
func Default[A comparable]() Acl[A] {
	return Acl[A]{Kind: Allow}
}

// IsSatisfiedBy 评估交易是否满足列表
//
// 满足返回 nil；否则返回 Evaluation 类程序错误。
func (a Acl[A]) IsSatisfiedBy(tx Recipient[A]) error {
	receiver, ok := tx.Receiver()
	if !ok {
		if a.AllowNullRecipient {
			return nil
		}
		return types.NewEvaluationError(MsgNullRecipient)
	}

	member := a.Contains(receiver)
	if (member && a.Kind == Allow) || (!member && a.Kind == Deny) {
		return nil
	}
	return types.NewEvaluationError(MsgNotAllowed)
}

// Contains 地址是否在列表中
func (a Acl[A]) Contains(addr A) bool {
	for _, candidate := range a.Addresses {
		if candidate == addr {
			return true
		}
	}
	return false
}

// Converter 原始地址到展示地址的转换（通常是某个架构的 AddressFromRaw）
type Converter[R, A comparable] interface {
	AddressFromRaw(raw R) A
}

// FromRaw 把以原始地址存储的列表转换为展示地址列表
func FromRaw[R, A comparable](conv Converter[R, A], raw Acl[R]) Acl[A] {
	out := Acl[A]{
		Kind:               raw.Kind,
		AllowNullRecipient: raw.AllowNullRecipient,
	}
	if raw.Addresses != nil {
		out.Addresses = make([]A, 0, len(raw.Addresses))
		for _, r := range raw.Addresses {
			out.Addresses = append(out.Addresses, conv.AddressFromRaw(r))
		}
	}
	return out
}

// ParseJSON 从 JSON 配置解析列表
//
// 解析失败返回 InvalidSignatureRequest 类程序错误（配置随签名请求一同提交）。
func ParseJSON[A comparable](data []byte) (Acl[A], error) {
	var out Acl[A]
	if err := json.Unmarshal(data, &out); err != nil {
		return Acl[A]{}, types.NewInvalidSignatureRequest(fmt.Sprintf("invalid acl config: %v", err))
	}
	return out, nil
}
