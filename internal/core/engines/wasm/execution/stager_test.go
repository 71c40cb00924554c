package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/weisyn/policyvm/internal/testutil/wasmgen"
	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

func instantiate(t *testing.T, wasm []byte, limitPages uint32) api.Module {
	t.Helper()
	ctx := context.Background()
	cfg := wazero.NewRuntimeConfig()
	if limitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(limitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, cfg)
	t.Cleanup(func() { _ = r.Close(ctx) })
	mod, err := r.InstantiateWithConfig(ctx, wasm, wazero.NewModuleConfig().WithName(""))
	require.NoError(t, err)
	return mod
}

func TestStager_HostAllocator(t *testing.T) {
	mod := instantiate(t, wasmgen.Accept(), 0)
	s, err := NewStager(mod)
	require.NoError(t, err)
	before := s.Memory().Size()

	slices, err := s.Stage(context.Background(), []byte("message"), nil, []byte{}, []byte("cfg"))
	require.NoError(t, err)
	require.Len(t, slices, 4)

	assert.Equal(t, Absent, slices[1])
	assert.Equal(t, Slice{Ptr: 0, Len: 0}, slices[2])
	assert.Equal(t, int32(7), slices[0].Len)

	// 输入写入新扩出的页，不覆盖原有内存
	assert.Equal(t, before+pageSize, s.Memory().Size())
	for _, i := range []int{0, 3} {
		assert.GreaterOrEqual(t, slices[i].Ptr, before)
	}
	got, ok := s.Memory().Read(slices[0].Ptr, 7)
	require.True(t, ok)
	assert.Equal(t, "message", string(got))
	got, ok = s.Memory().Read(slices[3].Ptr, 3)
	require.True(t, ok)
	assert.Equal(t, "cfg", string(got))
}

func TestStager_AllAbsentDoesNotGrow(t *testing.T) {
	mod := instantiate(t, wasmgen.Accept(), 0)
	s, err := NewStager(mod)
	require.NoError(t, err)
	before := s.Memory().Size()

	slices, err := s.Stage(context.Background(), nil, []byte{})
	require.NoError(t, err)
	assert.Equal(t, []Slice{Absent, {Ptr: 0, Len: 0}}, slices)
	assert.Equal(t, before, s.Memory().Size())
}

func TestStager_MemoryLimit(t *testing.T) {
	mod := instantiate(t, wasmgen.Accept(), 2)
	s, err := NewStager(mod)
	require.NoError(t, err)

	_, err = s.Stage(context.Background(), make([]byte, 3*pageSize))
	assert.ErrorIs(t, err, types.ErrResourceExhausted)
}

func TestStager_MemoryAtLimitWithoutAlloc(t *testing.T) {
	// 初始内存已占满上限，宿主无法扩容
	mod := instantiate(t, wasmgen.Accept(), 1)
	s, err := NewStager(mod)
	require.NoError(t, err)

	_, err = s.Stage(context.Background(), []byte("x"))
	require.ErrorIs(t, err, types.ErrResourceExhausted)
	assert.Contains(t, err.Error(), abi.ExportAlloc)

	// 空值与未提供不需要扩容
	_, err = s.Stage(context.Background(), nil, []byte{})
	assert.NoError(t, err)
}

func TestStager_GuestAlloc(t *testing.T) {
	mod := instantiate(t, wasmgen.GuestAlloc('A', "bad"), 0)
	s, err := NewStager(mod)
	require.NoError(t, err)
	before := s.Memory().Size()

	slices, err := s.Stage(context.Background(), []byte("AB"), []byte("C"))
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), slices[0].Ptr)
	assert.Equal(t, uint32(4098), slices[1].Ptr)
	assert.Equal(t, before, s.Memory().Size())
}

func TestStager_GuestAllocFails(t *testing.T) {
	mod := instantiate(t, wasmgen.GuestAllocFails(), 0)
	s, err := NewStager(mod)
	require.NoError(t, err)

	_, err = s.Stage(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, types.ErrResourceExhausted)
}

func TestStager_NoMemory(t *testing.T) {
	mod := instantiate(t, wasmgen.MissingExport(abi.ExportMemory), 0)
	_, err := NewStager(mod)
	assert.ErrorIs(t, err, types.ErrBindings)
}

func TestParamsAndReadPacked(t *testing.T) {
	params := Params(Slice{Ptr: 16, Len: 4}, Absent)
	require.Len(t, params, 4)
	assert.Equal(t, uint64(16), params[0])
	assert.Equal(t, uint64(4), params[1])
	assert.Equal(t, int32(-1), api.DecodeI32(params[3]))

	mod := instantiate(t, wasmgen.Reject(wasmgen.KindEvaluation, "nope"), 0)
	mem := mod.ExportedMemory(abi.ExportMemory)
	rec, err := ReadPacked(mem, abi.ExportEvaluate, abi.Pack(wasmgen.RecordOffset, 5))
	require.NoError(t, err)
	assert.Equal(t, wasmgen.Record(wasmgen.KindEvaluation, "nope"), rec)

	_, err = ReadPacked(mem, abi.ExportEvaluate, abi.Pack(0xFFFF0000, 16))
	assert.ErrorIs(t, err, types.ErrBindings)
}
