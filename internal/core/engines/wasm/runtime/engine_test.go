package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runtimeconfig "github.com/weisyn/policyvm/internal/config/runtime"
	"github.com/weisyn/policyvm/internal/core/infrastructure/metrics"
	"github.com/weisyn/policyvm/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/policyvm/internal/testutil/wasmgen"
	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

const testFuel = 10_000

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	e, err := NewEngine(context.Background(), cfg, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func evaluate(e *Engine, program []byte, msg []byte) error {
	return e.Evaluate(context.Background(), program, types.EvaluateInput{
		Request: types.SignatureRequest{Message: msg},
	}, testFuel)
}

func requireProgramError(t *testing.T, err error, kind types.ProgramErrorKind, msg string) {
	t.Helper()
	require.ErrorIs(t, err, types.ErrProgram)
	perr, ok := types.AsProgramError(err)
	require.True(t, ok)
	assert.Equal(t, kind, perr.Kind)
	assert.Equal(t, msg, perr.Message)
	assert.False(t, types.IsSystemic(err))
}

func TestEvaluate_LengthCheck(t *testing.T) {
	e := newTestEngine(t, nil)
	program := wasmgen.LengthCheck(10, wasmgen.KindEvaluation, "Length of data is too short.")

	assert.NoError(t, evaluate(e, program, []byte("this is long enough")))
	requireProgramError(t, evaluate(e, program, []byte("short")), types.Evaluation, "Length of data is too short.")
	requireProgramError(t, evaluate(e, program, nil), types.Evaluation, "Length of data is too short.")
}

func TestEvaluate_InputsReachGuestMemory(t *testing.T) {
	e := newTestEngine(t, nil)

	// 宿主分配器
	program := wasmgen.FirstByte('A', "first byte mismatch")
	assert.NoError(t, evaluate(e, program, []byte("ABC")))
	requireProgramError(t, evaluate(e, program, []byte("XBC")), types.Evaluation, "first byte mismatch")

	// 程序分配器
	program = wasmgen.GuestAlloc('A', "first byte mismatch")
	assert.NoError(t, evaluate(e, program, []byte("ABC")))
	requireProgramError(t, evaluate(e, program, []byte("XBC")), types.Evaluation, "first byte mismatch")
}

func TestEvaluate_OptionalInputs(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	aux := wasmgen.RequireAuxiliary(wasmgen.KindInvalidSignatureRequest, "auxiliary data required")
	err := e.Evaluate(ctx, aux, types.EvaluateInput{Request: types.SignatureRequest{Message: []byte("m")}}, testFuel)
	requireProgramError(t, err, types.InvalidSignatureRequest, "auxiliary data required")

	// 空的辅助数据视为"已提供"
	err = e.Evaluate(ctx, aux, types.EvaluateInput{
		Request: types.SignatureRequest{Message: []byte("m"), AuxiliaryData: []byte{}},
	}, testFuel)
	assert.NoError(t, err)

	oracle := wasmgen.RequireOracle(wasmgen.KindEvaluation, "No oracle data provided.")
	err = e.Evaluate(ctx, oracle, types.EvaluateInput{Request: types.SignatureRequest{Message: []byte("m")}}, testFuel)
	requireProgramError(t, err, types.Evaluation, "No oracle data provided.")

	err = e.Evaluate(ctx, oracle, types.EvaluateInput{
		Request:    types.SignatureRequest{Message: []byte("m")},
		OracleData: [][]byte{{0x05, 0x00, 0x00, 0x00}},
	}, testFuel)
	assert.NoError(t, err)
}

func TestEvaluate_InvalidTransactionRequestPassesThrough(t *testing.T) {
	e := newTestEngine(t, nil)
	msg := "ENS recipients not supported. Resolve to an address first."
	err := evaluate(e, wasmgen.Reject(wasmgen.KindInvalidTransactionRequest, msg), []byte("tx"))
	requireProgramError(t, err, types.InvalidTransactionRequest, msg)
}

func TestEvaluate_EmptyBytecode(t *testing.T) {
	e := newTestEngine(t, nil)
	assert.ErrorIs(t, evaluate(e, nil, []byte("m")), types.ErrEmptyBytecode)
	assert.ErrorIs(t, evaluate(e, []byte{}, []byte("m")), types.ErrEmptyBytecode)

	_, err := e.CustomHash(context.Background(), []byte{}, []byte("m"), testFuel)
	assert.ErrorIs(t, err, types.ErrEmptyBytecode)
}

func TestEvaluate_InvalidBytecode(t *testing.T) {
	e := newTestEngine(t, nil)
	for name, program := range map[string][]byte{
		"garbage":    []byte("definitely not wasm"),
		"env_import": wasmgen.ImportsEnv(),
		"truncated":  wasmgen.Accept()[:20],
	} {
		t.Run(name, func(t *testing.T) {
			err := evaluate(e, program, []byte("m"))
			assert.ErrorIs(t, err, types.ErrInvalidBytecode)
			assert.True(t, types.IsSystemic(err))
		})
	}
}

func TestEvaluate_WASIDisabledRejectsWASIImports(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.EnableWASI = false })
	assert.ErrorIs(t, evaluate(e, wasmgen.ReadsRandom(), []byte("m")), types.ErrInvalidBytecode)
	assert.NoError(t, evaluate(e, wasmgen.Accept(), []byte("m")))
}

func TestEvaluate_RandomnessAlwaysFails(t *testing.T) {
	e := newTestEngine(t, nil)
	assert.NoError(t, evaluate(e, wasmgen.ReadsRandom(), []byte("m")))
}

func TestEvaluate_Bindings(t *testing.T) {
	e := newTestEngine(t, nil)
	for name, program := range map[string][]byte{
		"missing_memory":      wasmgen.MissingExport(abi.ExportMemory),
		"missing_evaluate":    wasmgen.MissingExport(abi.ExportEvaluate),
		"missing_custom_hash": wasmgen.MissingExport(abi.ExportCustomHash),
		"wrong_signature":     wasmgen.WrongEvaluateSignature(),
		"record_out_of_range": wasmgen.OutOfBoundsRecord(),
		"unknown_record_kind": wasmgen.UnknownRecordKind(),
	} {
		t.Run(name, func(t *testing.T) {
			err := evaluate(e, program, []byte("m"))
			assert.ErrorIs(t, err, types.ErrBindings)
			assert.False(t, types.IsPolicyRejection(err))
		})
	}
}

func TestEvaluate_OutOfFuel(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, fuel := range []uint64{1, 10_000, 1_000_000} {
		err := e.Evaluate(context.Background(), wasmgen.InfiniteLoop(), types.EvaluateInput{
			Request: types.SignatureRequest{Message: []byte("m")},
		}, fuel)
		assert.ErrorIs(t, err, types.ErrOutOfFuel, "fuel=%d", fuel)

		_, err = e.CustomHash(context.Background(), wasmgen.InfiniteLoop(), []byte("m"), fuel)
		assert.ErrorIs(t, err, types.ErrOutOfFuel, "fuel=%d", fuel)
	}
}

func TestEvaluate_StartFunctionMetered(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.InitFuel = 100_000 })
	assert.ErrorIs(t, evaluate(e, wasmgen.StartLoop(), []byte("m")), types.ErrOutOfFuel)
}

func TestEvaluate_InitializeHasOwnBudget(t *testing.T) {
	// 每次空转 6 单位，初始化约消耗 600000，远超调用预算
	program := wasmgen.Reactor(100_000, 10, "Length of data is too short.")

	e := newTestEngine(t, nil)
	assert.NoError(t, evaluate(e, program, []byte("some_data_to_be_signed")))
	requireProgramError(t, evaluate(e, program, []byte("short")), types.Evaluation, "Length of data is too short.")

	_, err := e.CustomHash(context.Background(), program, []byte("m"), testFuel)
	requireProgramError(t, err, types.InvalidSignatureRequest, MsgCustomHashNone)

	t.Run("初始化预算耗尽", func(t *testing.T) {
		small := newTestEngine(t, func(c *Config) { c.InitFuel = 10_000 })
		err := evaluate(small, program, []byte("some_data_to_be_signed"))
		assert.ErrorIs(t, err, types.ErrOutOfFuel)
		assert.Contains(t, err.Error(), "_initialize")
	})

	t.Run("调用预算不受初始化影响", func(t *testing.T) {
		err := e.Evaluate(context.Background(), program, types.EvaluateInput{
			Request: types.SignatureRequest{Message: []byte("some_data_to_be_signed")},
		}, 50)
		assert.NoError(t, err)
	})
}

func TestEvaluate_FuelIsPerCall(t *testing.T) {
	e := newTestEngine(t, nil)
	program := wasmgen.LengthCheck(1, wasmgen.KindEvaluation, "short")
	// 共享燃料时，足够多次调用后会耗尽预算
	for i := 0; i < 100; i++ {
		err := e.Evaluate(context.Background(), program, types.EvaluateInput{
			Request: types.SignatureRequest{Message: []byte("m")},
		}, 20)
		require.NoError(t, err, "call %d", i)
	}
}

func TestEvaluate_Trap(t *testing.T) {
	e := newTestEngine(t, nil)
	err := evaluate(e, wasmgen.Trap(), []byte("m"))
	assert.ErrorIs(t, err, types.ErrTrap)
	assert.NotErrorIs(t, err, types.ErrOutOfFuel)
}

func TestEvaluate_Timeout(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.ExecutionTimeout = 50 * time.Millisecond })
	start := time.Now()
	err := e.Evaluate(context.Background(), wasmgen.InfiniteLoop(), types.EvaluateInput{
		Request: types.SignatureRequest{Message: []byte("m")},
	}, 1<<62)
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestEvaluate_CallerCancel(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := e.Evaluate(ctx, wasmgen.InfiniteLoop(), types.EvaluateInput{
		Request: types.SignatureRequest{Message: []byte("m")},
	}, 1<<62)
	assert.ErrorIs(t, err, types.ErrTimeout)
}

func TestEvaluate_MemoryLimit(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.MaxMemoryPages = 2 })
	err := evaluate(e, wasmgen.Accept(), make([]byte, 3*65536))
	assert.ErrorIs(t, err, types.ErrResourceExhausted)

	err = evaluate(e, wasmgen.GuestAllocFails(), []byte("m"))
	assert.ErrorIs(t, err, types.ErrResourceExhausted)
}

func TestCustomHash(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.CustomHash(ctx, wasmgen.CustomHash(-1), []byte("m"), testFuel)
	requireProgramError(t, err, types.InvalidSignatureRequest, MsgCustomHashNone)

	_, err = e.CustomHash(ctx, wasmgen.CustomHash(31), []byte("m"), testFuel)
	requireProgramError(t, err, types.InvalidSignatureRequest,
		"`custom-hash` must return a byte vector of length 32, not 31.")

	_, err = e.CustomHash(ctx, wasmgen.CustomHash(33), []byte("m"), testFuel)
	requireProgramError(t, err, types.InvalidSignatureRequest,
		"`custom-hash` must return a byte vector of length 32, not 33.")

	digest, err := e.CustomHash(ctx, wasmgen.CustomHash(32), []byte("m"), testFuel)
	require.NoError(t, err)
	for i, b := range digest {
		assert.Equal(t, byte(i), b)
	}

	_, err = e.CustomHash(ctx, wasmgen.OutOfBoundsRecord(), []byte("m"), testFuel)
	assert.ErrorIs(t, err, types.ErrBindings)
}

func TestEvaluate_Concurrent(t *testing.T) {
	e := newTestEngine(t, nil)
	program := wasmgen.FirstByte('A', "mismatch")

	var wg sync.WaitGroup
	errs := make([]error, 32)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := []byte("A")
			if i%2 == 1 {
				msg = []byte("B")
			}
			errs[i] = evaluate(e, program, msg)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if i%2 == 0 {
			assert.NoError(t, err, "call %d", i)
		} else {
			assert.ErrorIs(t, err, types.ErrProgram, "call %d", i)
		}
	}
}

func TestEngine_BytecodeCacheAndMetrics(t *testing.T) {
	store, err := memory.New(runtimeconfig.BytecodeCacheOptions{
		Enabled: true, LifeWindow: time.Minute, HardMaxCacheSize: 8,
	}, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test")
	require.NoError(t, collector.Register(reg))

	e, err := NewEngine(context.Background(), DefaultConfig(), nil, store, collector)
	require.NoError(t, err)
	defer e.Close(context.Background())

	program := wasmgen.Accept()
	require.NoError(t, evaluate(e, program, []byte("m")))
	require.NoError(t, evaluate(e, program, []byte("m")))
	assert.Equal(t, 1, store.Len())

	assert.ErrorIs(t, evaluate(e, wasmgen.InfiniteLoop(), []byte("m")), types.ErrOutOfFuel)
	assert.Equal(t, 2, store.Len())

	// (evaluate, ok) 与 (evaluate, out_of_fuel) 两个序列
	n, err := testutil.GatherAndCount(reg, "test_policy_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	// hit 与 miss 两个序列
	n, err = testutil.GatherAndCount(reg, "test_policy_bytecode_cache_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInspect(t *testing.T) {
	e := newTestEngine(t, nil)
	info, err := e.Inspect(context.Background(), wasmgen.ReadsRandom())
	require.NoError(t, err)
	assert.Equal(t, []string{"wasi_snapshot_preview1.random_get"}, info.Imports)
	assert.Equal(t, []string{"custom_hash", "evaluate", "memory"}, info.Exports)
	assert.Empty(t, info.Bindings)
	assert.Equal(t, 2, info.Functions)
	assert.Greater(t, info.InstrumentedSize, info.Size)

	info, err = e.Inspect(context.Background(), wasmgen.MissingExport(abi.ExportEvaluate))
	require.NoError(t, err)
	assert.Contains(t, info.Bindings, "evaluate")

	info, err = e.Inspect(context.Background(), wasmgen.FillLoop(1024))
	require.NoError(t, err)
	assert.Equal(t, 1, info.BulkOps)
	assert.Equal(t, []string{"custom_hash", "evaluate", "memory"}, info.Exports)

	_, err = e.Inspect(context.Background(), wasmgen.ImportsEnv())
	assert.ErrorIs(t, err, types.ErrInvalidBytecode)
}

func TestConfigFromOptions(t *testing.T) {
	cfg := ConfigFromOptions(runtimeconfig.New(nil).GetOptions())
	assert.Equal(t, uint32(1024), cfg.MaxMemoryPages)
	assert.Equal(t, DefaultInitFuel, cfg.InitFuel)
	assert.True(t, cfg.EnableWASI)
	assert.True(t, cfg.UseCompiler)
	assert.Zero(t, cfg.ExecutionTimeout)
}
