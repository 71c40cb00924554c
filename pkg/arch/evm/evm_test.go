package evm

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/policyvm/pkg/types"
)

// eip155Tx 9 字段传统交易：nonce=1, to=0x772b…c990, value=1, data="Created On Entropy", chainId=1
const eip155Tx = "0xef01808094772b9a9e8aa1c9db861c6611a82d251db4fac990019243726561746564204f6e20456e74726f7079018080"

var recipient = common.HexToAddress("0x772b9a9e8aa1c9db861c6611a82d251db4fac990")

func requireKind(t *testing.T, err error, kind types.ProgramErrorKind) *types.ProgramError {
	t.Helper()
	require.Error(t, err)
	perr, ok := types.AsProgramError(err)
	require.True(t, ok, "expected program error, got %v", err)
	assert.Equal(t, kind, perr.Kind)
	return perr
}

func encodeLegacy(t *testing.T, to []byte, rest ...rlp.RawValue) string {
	t.Helper()
	raw, err := rlp.EncodeToBytes(legacyPayload{
		Nonce:    3,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       to,
		Value:    big.NewInt(7),
		Data:     []byte{},
		Rest:     rest,
	})
	require.NoError(t, err)
	return hexutil.Encode(raw)
}

func TestParseEIP155(t *testing.T) {
	tx, err := Evm{}.Parse(eip155Tx)
	require.NoError(t, err)

	to, ok := tx.Receiver()
	require.True(t, ok)
	assert.Equal(t, recipient, to)

	_, ok = tx.Sender()
	assert.False(t, ok, "unsigned transactions carry no sender")

	assert.Equal(t, uint8(ethtypes.LegacyTxType), tx.Type())
	assert.Equal(t, big.NewInt(1), tx.ChainID())
	assert.Equal(t, uint64(1), tx.Nonce())
	assert.Equal(t, big.NewInt(1), tx.Value())
	assert.Equal(t, "Created On Entropy", string(tx.Data()))

	assert.Equal(t,
		common.HexToHash("0xe62e139a15f27f3d5ba043756aaca2b6fe9597a95973befa36dbe6095ee16da2"),
		tx.SigHash())
}

func TestTryParse(t *testing.T) {
	t.Run("UTF-8 文本", func(t *testing.T) {
		tx, err := Evm{}.TryParse([]byte(eip155Tx))
		require.NoError(t, err)
		to, ok := tx.Receiver()
		require.True(t, ok)
		assert.Equal(t, recipient, to)
	})

	t.Run("无 0x 前缀", func(t *testing.T) {
		_, err := Evm{}.TryParse([]byte(strings.TrimPrefix(eip155Tx, "0x")))
		require.NoError(t, err)
	})

	t.Run("非 UTF-8", func(t *testing.T) {
		_, err := Evm{}.TryParse([]byte{0xff, 0xfe, 0x00})
		requireKind(t, err, types.InvalidTransactionRequest)
	})

	t.Run("非十六进制", func(t *testing.T) {
		_, err := Evm{}.TryParse([]byte("0xzz"))
		requireKind(t, err, types.InvalidTransactionRequest)
	})

	t.Run("空载荷", func(t *testing.T) {
		_, err := Evm{}.TryParse([]byte("0x"))
		requireKind(t, err, types.InvalidTransactionRequest)
	})

	t.Run("截断的RLP", func(t *testing.T) {
		_, err := Evm{}.TryParse([]byte(eip155Tx[:40]))
		requireKind(t, err, types.InvalidTransactionRequest)
	})
}

// TestNameRecipientRejected 接收方为可读名称时拒绝
func TestNameRecipientRejected(t *testing.T) {
	text := encodeLegacy(t, []byte("vitalik.eth"), rlp.RawValue{0x01}, rlp.RawValue{0x80}, rlp.RawValue{0x80})

	_, err := Evm{}.TryParse([]byte(text))
	perr := requireKind(t, err, types.InvalidTransactionRequest)
	assert.Equal(t, MsgNameRecipient, perr.Message)
}

func TestLegacyVariants(t *testing.T) {
	t.Run("6 字段无链ID", func(t *testing.T) {
		text := encodeLegacy(t, recipient.Bytes())
		tx, err := Evm{}.Parse(text)
		require.NoError(t, err)
		assert.Nil(t, tx.ChainID())
		assert.Equal(t, crypto.Keccak256Hash(hexutil.MustDecode(text)), tx.SigHash())
	})

	t.Run("合约创建无接收方", func(t *testing.T) {
		tx, err := Evm{}.Parse(encodeLegacy(t, nil))
		require.NoError(t, err)
		_, ok := tx.Receiver()
		assert.False(t, ok)
	})

	t.Run("接收方长度错误", func(t *testing.T) {
		_, err := Evm{}.Parse(encodeLegacy(t, []byte{0x01, 0x02, 0x03}))
		requireKind(t, err, types.InvalidTransactionRequest)
	})

	t.Run("字段数错误", func(t *testing.T) {
		_, err := Evm{}.Parse(encodeLegacy(t, recipient.Bytes(), rlp.RawValue{0x01}))
		requireKind(t, err, types.InvalidTransactionRequest)
	})

	t.Run("EIP-155 签名位非零", func(t *testing.T) {
		_, err := Evm{}.Parse(encodeLegacy(t, recipient.Bytes(), rlp.RawValue{0x01}, rlp.RawValue{0x01}, rlp.RawValue{0x80}))
		requireKind(t, err, types.InvalidTransactionRequest)
	})
}

func TestTypedTransactions(t *testing.T) {
	t.Run("EIP-1559", func(t *testing.T) {
		payload, err := rlp.EncodeToBytes(dynamicFeePayload{
			ChainID:   big.NewInt(11155111),
			Nonce:     9,
			GasTipCap: big.NewInt(2),
			GasFeeCap: big.NewInt(30),
			Gas:       50000,
			To:        recipient.Bytes(),
			Value:     big.NewInt(1000),
			Data:      []byte{0xde, 0xad},
			AccessList: ethtypes.AccessList{
				{Address: recipient, StorageKeys: []common.Hash{{0x01}}},
			},
		})
		require.NoError(t, err)
		raw := append([]byte{ethtypes.DynamicFeeTxType}, payload...)

		tx, err := Evm{}.Parse(hexutil.Encode(raw))
		require.NoError(t, err)
		assert.Equal(t, uint8(ethtypes.DynamicFeeTxType), tx.Type())
		assert.Equal(t, big.NewInt(11155111), tx.ChainID())
		to, ok := tx.Receiver()
		require.True(t, ok)
		assert.Equal(t, recipient, to)
		assert.Equal(t, crypto.Keccak256Hash(raw), tx.SigHash())
	})

	t.Run("EIP-2930", func(t *testing.T) {
		payload, err := rlp.EncodeToBytes(accessListPayload{
			ChainID:  big.NewInt(1),
			Nonce:    0,
			GasPrice: big.NewInt(5),
			Gas:      21000,
			To:       recipient.Bytes(),
			Value:    big.NewInt(0),
			Data:     []byte{},
		})
		require.NoError(t, err)
		raw := append([]byte{ethtypes.AccessListTxType}, payload...)

		tx, err := Evm{}.Parse(hexutil.Encode(raw))
		require.NoError(t, err)
		assert.Equal(t, uint8(ethtypes.AccessListTxType), tx.Type())
		assert.Equal(t, crypto.Keccak256Hash(raw), tx.SigHash())
	})

	t.Run("不支持的类型", func(t *testing.T) {
		_, err := Evm{}.Parse("0x03c0")
		requireKind(t, err, types.InvalidTransactionRequest)
	})
}

func TestAddressRawRoundTrip(t *testing.T) {
	arch := Evm{}
	assert.Equal(t, "evm", arch.Name())

	var raw AddressRaw
	copy(raw[:], recipient.Bytes())
	assert.Equal(t, recipient, arch.AddressFromRaw(raw))
	assert.Equal(t, raw, arch.AddressToRaw(arch.AddressFromRaw(raw)))
	assert.Equal(t, recipient, arch.AddressFromRaw(arch.AddressToRaw(recipient)))
}
