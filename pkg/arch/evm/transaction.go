package evm

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/weisyn/policyvm/pkg/types"
)

// MsgNameRecipient 接收方为可读名称
const MsgNameRecipient = "ENS recipients not supported. Resolve to an address first."

// TransactionRequest 已解析的未签名交易
type TransactionRequest struct {
	tx      *ethtypes.Transaction
	chainID *big.Int // 未携带链ID的传统交易为 nil
}

// legacyPayload 传统交易的 RLP 结构，Rest 为 EIP-155 的 [chainId, 0, 0]
type legacyPayload struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	Rest     []rlp.RawValue `rlp:"tail"`
}

type accessListPayload struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList ethtypes.AccessList
}

type dynamicFeePayload struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList ethtypes.AccessList
}

func invalid(format string, args ...interface{}) error {
	return types.NewInvalidTransactionRequest(fmt.Sprintf(format, args...))
}

// TryParseTransaction 载荷须为 UTF-8 文本，然后按 ParseTransaction 解析
func TryParseTransaction(b []byte) (*TransactionRequest, error) {
	if !utf8.Valid(b) {
		return nil, invalid("transaction request is not valid utf-8")
	}
	return ParseTransaction(string(b))
}

// ParseTransaction 从十六进制文本解析未签名交易
func ParseTransaction(text string) (*TransactionRequest, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "0x") && !strings.HasPrefix(text, "0X") {
		text = "0x" + text
	}
	raw, err := hexutil.Decode("0x" + text[2:])
	if err != nil {
		return nil, invalid("transaction request is not valid hex: %v", err)
	}
	if len(raw) == 0 {
		return nil, invalid("transaction request is empty")
	}
	return DecodeTransaction(raw)
}

// DecodeTransaction 解码未签名交易的二进制形式
func DecodeTransaction(raw []byte) (*TransactionRequest, error) {
	switch {
	case raw[0] >= 0xc0:
		return decodeLegacy(raw)
	case raw[0] == ethtypes.AccessListTxType:
		return decodeAccessList(raw[1:])
	case raw[0] == ethtypes.DynamicFeeTxType:
		return decodeDynamicFee(raw[1:])
	default:
		return nil, invalid("unsupported transaction type 0x%02x", raw[0])
	}
}

func decodeLegacy(raw []byte) (*TransactionRequest, error) {
	var p legacyPayload
	if err := rlp.DecodeBytes(raw, &p); err != nil {
		return nil, invalid("unable to decode legacy transaction: %v", err)
	}
	to, err := decodeRecipient(p.To)
	if err != nil {
		return nil, err
	}

	var chainID *big.Int
	switch len(p.Rest) {
	case 0:
	case 3:
		chainID = new(big.Int)
		if err := rlp.DecodeBytes(p.Rest[0], chainID); err != nil {
			return nil, invalid("unable to decode chain id: %v", err)
		}
		for _, v := range p.Rest[1:] {
			var zero big.Int
			if err := rlp.DecodeBytes(v, &zero); err != nil || zero.Sign() != 0 {
				return nil, invalid("unsigned EIP-155 transaction must end with [chainId, 0, 0]")
			}
		}
	default:
		return nil, invalid("legacy transaction has %d fields, want 6 or 9", 6+len(p.Rest))
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    p.Nonce,
		GasPrice: p.GasPrice,
		Gas:      p.Gas,
		To:       to,
		Value:    p.Value,
		Data:     p.Data,
	})
	return &TransactionRequest{tx: tx, chainID: chainID}, nil
}

func decodeAccessList(payload []byte) (*TransactionRequest, error) {
	var p accessListPayload
	if err := rlp.DecodeBytes(payload, &p); err != nil {
		return nil, invalid("unable to decode EIP-2930 transaction: %v", err)
	}
	to, err := decodeRecipient(p.To)
	if err != nil {
		return nil, err
	}
	tx := ethtypes.NewTx(&ethtypes.AccessListTx{
		ChainID:    p.ChainID,
		Nonce:      p.Nonce,
		GasPrice:   p.GasPrice,
		Gas:        p.Gas,
		To:         to,
		Value:      p.Value,
		Data:       p.Data,
		AccessList: p.AccessList,
	})
	return &TransactionRequest{tx: tx, chainID: p.ChainID}, nil
}

func decodeDynamicFee(payload []byte) (*TransactionRequest, error) {
	var p dynamicFeePayload
	if err := rlp.DecodeBytes(payload, &p); err != nil {
		return nil, invalid("unable to decode EIP-1559 transaction: %v", err)
	}
	to, err := decodeRecipient(p.To)
	if err != nil {
		return nil, err
	}
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:    p.ChainID,
		Nonce:      p.Nonce,
		GasTipCap:  p.GasTipCap,
		GasFeeCap:  p.GasFeeCap,
		Gas:        p.Gas,
		To:         to,
		Value:      p.Value,
		Data:       p.Data,
		AccessList: p.AccessList,
	})
	return &TransactionRequest{tx: tx, chainID: p.ChainID}, nil
}

// decodeRecipient 空字段为无接收方，20 字节为地址，可读文本为名称
func decodeRecipient(field []byte) (*common.Address, error) {
	switch {
	case len(field) == 0:
		return nil, nil
	case len(field) == common.AddressLength:
		addr := common.BytesToAddress(field)
		return &addr, nil
	case isReadableName(field):
		return nil, types.NewInvalidTransactionRequest(MsgNameRecipient)
	default:
		return nil, invalid("recipient must be %d bytes, got %d", common.AddressLength, len(field))
	}
}

func isReadableName(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// Sender 未签名交易没有可恢复的发送方
func (t *TransactionRequest) Sender() (Address, bool) {
	return Address{}, false
}

// Receiver 交易接收方，合约创建交易返回 false
func (t *TransactionRequest) Receiver() (Address, bool) {
	if to := t.tx.To(); to != nil {
		return *to, true
	}
	return Address{}, false
}

// ChainID 链ID，未携带时返回 nil
func (t *TransactionRequest) ChainID() *big.Int {
	if t.chainID == nil {
		return nil
	}
	return new(big.Int).Set(t.chainID)
}

// Type 交易类型（0 传统、1 EIP-2930、2 EIP-1559）
func (t *TransactionRequest) Type() uint8 { return t.tx.Type() }

// Nonce 交易序号
func (t *TransactionRequest) Nonce() uint64 { return t.tx.Nonce() }

// Value 转账金额
func (t *TransactionRequest) Value() *big.Int { return t.tx.Value() }

// Data 调用数据
func (t *TransactionRequest) Data() []byte { return t.tx.Data() }

// Gas 燃料上限
func (t *TransactionRequest) Gas() uint64 { return t.tx.Gas() }

// Transaction 底层 go-ethereum 交易对象
func (t *TransactionRequest) Transaction() *ethtypes.Transaction { return t.tx }

// SigHash 签名原像的 keccak256 摘要
func (t *TransactionRequest) SigHash() common.Hash {
	return t.signer().Hash(t.tx)
}

func (t *TransactionRequest) signer() ethtypes.Signer {
	if t.tx.Type() == ethtypes.LegacyTxType {
		if t.chainID == nil {
			return ethtypes.HomesteadSigner{}
		}
		return ethtypes.NewEIP155Signer(t.chainID)
	}
	return ethtypes.LatestSignerForChainID(t.chainID)
}
