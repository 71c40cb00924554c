package program

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

// recorder 记录收到的输入，返回预设结果
type recorder struct {
	NoCustomHash
	err error

	req    types.SignatureRequest
	config []byte
	oracle [][]byte
}

func (r *recorder) Evaluate(req types.SignatureRequest, config []byte, oracle [][]byte) error {
	r.req, r.config, r.oracle = req, config, oracle
	return r.err
}

type fixedHash struct {
	NoCustomHash
	digest []byte
}

func (fixedHash) Evaluate(types.SignatureRequest, []byte, [][]byte) error { return nil }

func (f fixedHash) CustomHash([]byte) ([]byte, bool) { return f.digest, true }

func TestRunEvaluatePassesInputs(t *testing.T) {
	p := &recorder{}
	blob := abi.EncodeOracleData([][]byte{{0x01}, {}, {0x02, 0x03}})

	perr := RunEvaluate(p, types.SignatureRequest{Message: []byte("msg"), AuxiliaryData: []byte{}}, []byte("cfg"), blob)
	require.Nil(t, perr)

	assert.Equal(t, []byte("msg"), p.req.Message)
	assert.True(t, p.req.HasAuxiliaryData())
	assert.Equal(t, []byte("cfg"), p.config)
	assert.Equal(t, [][]byte{{0x01}, {}, {0x02, 0x03}}, p.oracle)
}

func TestRunEvaluateAbsentInputs(t *testing.T) {
	p := &recorder{}

	require.Nil(t, RunEvaluate(p, types.SignatureRequest{}, nil, nil))
	assert.NotNil(t, p.req.Message)
	assert.Empty(t, p.req.Message)
	assert.False(t, p.req.HasAuxiliaryData())
	assert.Nil(t, p.config)
	assert.Nil(t, p.oracle)

	require.Nil(t, RunEvaluate(p, types.SignatureRequest{}, nil, []byte{}))
	assert.NotNil(t, p.oracle)
	assert.Empty(t, p.oracle)
}

func TestRunEvaluateNormalizesErrors(t *testing.T) {
	t.Run("程序错误原样返回", func(t *testing.T) {
		want := types.NewInvalidTransactionRequest("bad tx")
		perr := RunEvaluate(&recorder{err: want}, types.SignatureRequest{}, nil, nil)
		assert.Equal(t, want, perr)
	})

	t.Run("包装后的程序错误", func(t *testing.T) {
		wrapped := errors.Join(errors.New("context"), types.NewInvalidSignatureRequest("bad sig"))
		perr := RunEvaluate(&recorder{err: wrapped}, types.SignatureRequest{}, nil, nil)
		require.NotNil(t, perr)
		assert.Equal(t, types.InvalidSignatureRequest, perr.Kind)
	})

	t.Run("普通错误按 Evaluation 处理", func(t *testing.T) {
		perr := RunEvaluate(&recorder{err: errors.New("nope")}, types.SignatureRequest{}, nil, nil)
		assert.Equal(t, types.NewEvaluationError("nope"), perr)
	})

	t.Run("未知标签", func(t *testing.T) {
		perr := RunEvaluate(&recorder{err: &types.ProgramError{Kind: 9, Message: "x"}}, types.SignatureRequest{}, nil, nil)
		assert.Equal(t, types.NewEvaluationError("x"), perr)
	})

	t.Run("预言机数据格式错误", func(t *testing.T) {
		p := &recorder{}
		perr := RunEvaluate(p, types.SignatureRequest{}, nil, []byte{0xff})
		assert.Equal(t, types.NewInvalidSignatureRequest(MsgMalformedOracleData), perr)
	})

	t.Run("未注册程序", func(t *testing.T) {
		perr := RunEvaluate(nil, types.SignatureRequest{}, nil, nil)
		require.NotNil(t, perr)
		assert.Equal(t, types.Evaluation, perr.Kind)
	})
}

func TestResultEncoding(t *testing.T) {
	var stored []byte
	pin := func(b []byte) uint32 {
		stored = b
		return 2048
	}

	assert.Equal(t, abi.Ok, EvaluateResult(nil, pin))
	assert.Nil(t, stored)

	v := EvaluateResult(types.NewEvaluationError("denied"), pin)
	ptr, length := abi.Unpack(v)
	assert.Equal(t, uint32(2048), ptr)
	assert.Equal(t, uint32(len(stored)), length)
	decoded, err := abi.DecodeErrorRecord(stored)
	require.NoError(t, err)
	assert.Equal(t, "denied", decoded.Message)

	assert.Equal(t, abi.None, CustomHashResult(nil, false, pin))

	digest := make([]byte, abi.HashLength)
	v = CustomHashResult(digest, true, pin)
	_, length = abi.Unpack(v)
	assert.Equal(t, uint32(abi.HashLength), length)
}

func TestRunCustomHash(t *testing.T) {
	_, ok := RunCustomHash(&recorder{}, []byte("x"))
	assert.False(t, ok)

	digest, ok := RunCustomHash(fixedHash{digest: []byte{1, 2}}, nil)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2}, digest)

	_, ok = RunCustomHash(nil, nil)
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	prev := Registered()
	t.Cleanup(func() { Register(prev) })

	p := &recorder{}
	Register(p)
	assert.Same(t, p, Registered())
}
