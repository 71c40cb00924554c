// Package arch 定义链无关的交易解析契约
//
// 🎯 **核心职责**：
// 为策略程序提供统一的"架构"抽象：地址的展示形式与定长原始形式之间的无损转换，
// 以及把签名请求载荷解析为带收发方信息的交易请求。
//
// 📋 **实现**：
//   - evm：以太坊系链（RLP 编码的未签名交易）
//   - substrate：Substrate 系链（SCALE 编码的 Balances 转账调用）
//
// 新的链通过实现 Architecture 接口接入；ACL 评估器（pkg/acl）只依赖 Recipient，不绑定具体架构。
package arch

// TransactionRequest 已解析的未签名交易
//
// 发送方/接收方缺失时返回 ok=false（例如合约创建交易没有接收方）。
type TransactionRequest[A comparable] interface {
	Sender() (A, bool)
	Receiver() (A, bool)
}

// Architecture 链架构描述
//
// 类型参数：
//   - A：地址展示形式
//   - R：地址原始形式（定长字节）
//   - T：交易请求类型
type Architecture[A, R comparable, T TransactionRequest[A]] interface {
	// Name 架构名称（"evm"、"substrate"）
	Name() string

	// AddressFromRaw 由原始形式构造地址
	AddressFromRaw(raw R) A

	// AddressToRaw 取地址的原始形式；AddressFromRaw(AddressToRaw(a)) == a
	AddressToRaw(addr A) R

	// Parse 从文本形式解析交易请求
	Parse(text string) (T, error)

	// TryParse 从签名请求载荷解析交易请求，载荷须为 UTF-8 文本
	TryParse(b []byte) (T, error)
}
