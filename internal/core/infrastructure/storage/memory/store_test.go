package memory

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runtimeconfig "github.com/weisyn/policyvm/internal/config/runtime"
)

// setupTestStore 创建测试缓存
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(runtimeconfig.BytecodeCacheOptions{
		Enabled:          true,
		LifeWindow:       time.Minute,
		HardMaxCacheSize: 8,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SetGet(t *testing.T) {
	store := setupTestStore(t)

	key := Key([]byte("program"), 10_000)
	_, ok := store.Get(key)
	assert.False(t, ok)

	require.NoError(t, store.Set(key, []byte{0x00, 0x61, 0x73, 0x6D}))
	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D}, got)
	assert.Equal(t, 1, store.Len())

	// 返回副本
	got[0] = 0xFF
	again, _ := store.Get(key)
	assert.Equal(t, byte(0x00), again[0])
}

func TestStore_Compressed(t *testing.T) {
	store := setupTestStore(t)

	// 高度重复的字节码压缩后远小于 MaxEntrySize
	value := bytes.Repeat([]byte{0x41, 0x01, 0x1A}, 100_000)
	require.NoError(t, store.Set("big", value))

	got, ok := store.Get("big")
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestKey_DependsOnProgramAndFuel(t *testing.T) {
	a := Key([]byte("program"), 10)
	assert.Equal(t, a, Key([]byte("program"), 10))
	assert.NotEqual(t, a, Key([]byte("program"), 11))
	assert.NotEqual(t, a, Key([]byte("programs"), 10))
	assert.Len(t, a, 64+1+2)
}

func TestStore_Closed(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Set("k", []byte("v")), ErrClosed)
	_, ok := store.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}
