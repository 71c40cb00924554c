package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/policyvm/internal/testutil/wasmgen"
	"github.com/weisyn/policyvm/pkg/types"
)

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

// 场景A：消息长度检查
func TestScenarioA_Barebones(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()
	program := wasmgen.LengthCheck(10, wasmgen.KindEvaluation, "Length of data is too short.")

	err := rt.Evaluate(ctx, program, types.SignatureRequest{Message: []byte("0123456789")}, nil, nil)
	assert.NoError(t, err)

	err = rt.Evaluate(ctx, program, types.SignatureRequest{Message: []byte("012345678")}, nil, nil)
	require.ErrorIs(t, err, types.ErrProgram)
	perr, ok := types.AsProgramError(err)
	require.True(t, ok)
	assert.Equal(t, &types.ProgramError{Kind: types.Evaluation, Message: "Length of data is too short."}, perr)

	t.Run("4字节消息被拒绝", func(t *testing.T) {
		err := rt.Evaluate(ctx, program, types.SignatureRequest{Message: []byte("asdf")}, nil, nil)
		perr, ok := types.AsProgramError(err)
		require.True(t, ok)
		assert.Equal(t, &types.ProgramError{Kind: types.Evaluation, Message: "Length of data is too short."}, perr)
	})

	t.Run("16字节消息通过", func(t *testing.T) {
		msg := []byte("asdfasdfasdfasdf")
		require.Len(t, msg, 16)
		assert.NoError(t, rt.Evaluate(ctx, program, types.SignatureRequest{Message: msg}, nil, nil))
	})
}

// 场景D：程序返回的交易解析错误原样传递
func TestScenarioD_ProgramParseErrorPassesThrough(t *testing.T) {
	rt := newRuntime(t)
	msg := "ENS recipients not supported. Resolve to an address first."
	err := rt.Evaluate(context.Background(), wasmgen.Reject(wasmgen.KindInvalidTransactionRequest, msg),
		types.SignatureRequest{Message: []byte("0xef")}, nil, nil)

	perr, ok := types.AsProgramError(err)
	require.True(t, ok)
	assert.Equal(t, types.InvalidTransactionRequest, perr.Kind)
	assert.Equal(t, msg, perr.Message)
	assert.True(t, types.IsPolicyRejection(err))
}

func TestDefaults(t *testing.T) {
	rt := newRuntime(t)
	assert.Equal(t, DefaultFuel, rt.Fuel())
	assert.Equal(t, uint64(10_000), rt.Fuel())
}

func TestInfiniteLoop_OutOfFuel(t *testing.T) {
	for _, fuel := range []uint64{1, 10_000, 1_000_000} {
		rt := newRuntime(t, WithFuel(fuel))
		err := rt.Evaluate(context.Background(), wasmgen.InfiniteLoop(), types.SignatureRequest{Message: []byte("m")}, nil, nil)
		assert.ErrorIs(t, err, types.ErrOutOfFuel, "fuel=%d", fuel)
		assert.True(t, types.IsSystemic(err))
	}
}

func TestBulkMemoryLoop_OutOfFuel(t *testing.T) {
	rt := newRuntime(t)
	start := time.Now()
	err := rt.Evaluate(context.Background(), wasmgen.FillLoop(65536), types.SignatureRequest{Message: []byte("m")}, nil, nil)
	assert.ErrorIs(t, err, types.ErrOutOfFuel)
	// 默认预算只够约 10 次 64KiB 填充
	assert.Less(t, time.Since(start), 5*time.Second)
}

// 与 pkg/program 生成的 TinyGo 产物导出形态相同的程序在默认预算下运行
func TestReactorProgram_DefaultBudgets(t *testing.T) {
	program := wasmgen.Reactor(100_000, 10, "Length of data is too short.")
	ctx := context.Background()

	rt := newRuntime(t)
	assert.Equal(t, DefaultInitFuel, uint64(50_000_000))
	assert.NoError(t, rt.Evaluate(ctx, program, types.SignatureRequest{Message: []byte("asdfasdfasdfasdf")}, nil, nil))

	err := rt.Evaluate(ctx, program, types.SignatureRequest{Message: []byte("asdf")}, nil, nil)
	perr, ok := types.AsProgramError(err)
	require.True(t, ok)
	assert.Equal(t, "Length of data is too short.", perr.Message)

	limited := newRuntime(t, WithInitFuel(1_000))
	err = limited.Evaluate(ctx, program, types.SignatureRequest{Message: []byte("asdfasdfasdfasdf")}, nil, nil)
	assert.ErrorIs(t, err, types.ErrOutOfFuel)
}

func TestZeroFuel(t *testing.T) {
	rt := newRuntime(t, WithFuel(0))
	err := rt.Evaluate(context.Background(), wasmgen.Accept(), types.SignatureRequest{Message: []byte("m")}, nil, nil)
	assert.ErrorIs(t, err, types.ErrOutOfFuel)
}

func TestCustomHashLengths(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	for _, n := range []int{-1, 31, 33} {
		_, err := rt.CustomHash(ctx, wasmgen.CustomHash(n), []byte("m"))
		perr, ok := types.AsProgramError(err)
		require.True(t, ok, "n=%d", n)
		assert.Equal(t, types.InvalidSignatureRequest, perr.Kind, "n=%d", n)
	}

	digest, err := rt.CustomHash(ctx, wasmgen.CustomHash(32), []byte("m"))
	require.NoError(t, err)
	var want [32]byte
	for i := range want {
		want[i] = byte(i)
	}
	assert.Equal(t, want, digest)
}

func TestEmptyBytecode(t *testing.T) {
	rt := newRuntime(t)
	err := rt.Evaluate(context.Background(), nil, types.SignatureRequest{Message: []byte("m")}, nil, nil)
	assert.ErrorIs(t, err, types.ErrEmptyBytecode)
	assert.EqualError(t, types.ErrEmptyBytecode, "bytecode length is zero")
}

func TestOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := newRuntime(t,
		WithFuel(500),
		WithMaxMemoryPages(16),
		WithTimeout(time.Second),
		WithInterpreter(),
		WithBytecodeCache(time.Minute, 8),
		WithMetrics(reg, "opt"),
	)
	assert.Equal(t, uint64(500), rt.Fuel())

	ctx := context.Background()
	require.NoError(t, rt.Evaluate(ctx, wasmgen.Accept(), types.SignatureRequest{Message: []byte("m")}, nil, nil))
	require.NoError(t, rt.Evaluate(ctx, wasmgen.Accept(), types.SignatureRequest{Message: []byte("m")}, nil, nil))

	n, err := testutil.GatherAndCount(reg, "opt_policy_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWithWASIDisabled(t *testing.T) {
	rt := newRuntime(t, WithWASI(false))
	err := rt.Evaluate(context.Background(), wasmgen.ReadsRandom(), types.SignatureRequest{Message: []byte("m")}, nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidBytecode)
}

func TestInspect(t *testing.T) {
	rt := newRuntime(t)
	info, err := rt.Inspect(context.Background(), wasmgen.Accept())
	require.NoError(t, err)
	assert.Empty(t, info.Bindings)
	assert.Empty(t, info.Imports)
}
