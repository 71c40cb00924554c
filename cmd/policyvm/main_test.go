package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/policyvm/internal/testutil/wasmgen"
	"github.com/weisyn/policyvm/pkg/types"
)

func TestPayloadFlags(t *testing.T) {
	newSet := func() (*pflag.FlagSet, *payloadFlags) {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		return fs, newPayloadFlags(fs, "message", "消息")
	}

	t.Run("未提供", func(t *testing.T) {
		fs, p := newSet()
		require.NoError(t, fs.Parse(nil))
		b, err := p.read(fs)
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("空文本视为已提供", func(t *testing.T) {
		fs, p := newSet()
		require.NoError(t, fs.Parse([]string{"--message="}))
		b, err := p.read(fs)
		require.NoError(t, err)
		assert.NotNil(t, b)
		assert.Empty(t, b)
	})

	t.Run("十六进制", func(t *testing.T) {
		fs, p := newSet()
		require.NoError(t, fs.Parse([]string{"--message-hex", "0xdeadbeef"}))
		b, err := p.read(fs)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, b)
	})

	t.Run("文件", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "msg.bin")
		require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

		fs, p := newSet()
		require.NoError(t, fs.Parse([]string{"--message-file", path}))
		b, err := p.read(fs)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, b)
	})

	t.Run("多个来源冲突", func(t *testing.T) {
		fs, p := newSet()
		require.NoError(t, fs.Parse([]string{"--message", "a", "--message-hex", "00"}))
		_, err := p.read(fs)
		assert.Error(t, err)
	})

	t.Run("无效十六进制", func(t *testing.T) {
		fs, p := newSet()
		require.NoError(t, fs.Parse([]string{"--message-hex", "zz"}))
		_, err := p.read(fs)
		assert.Error(t, err)
	})
}

func TestExitFor(t *testing.T) {
	assert.NoError(t, exitFor(nil))

	var exit *exitError
	require.True(t, errors.As(exitFor(types.WrapProgramError(types.NewEvaluationError("no"))), &exit))
	assert.Equal(t, exitRejected, exit.code)

	require.True(t, errors.As(exitFor(types.ErrOutOfFuel), &exit))
	assert.Equal(t, exitSystemic, exit.code)
	assert.ErrorIs(t, exit, types.ErrOutOfFuel)
}

func TestEvalCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barebones.wasm")
	program := wasmgen.LengthCheck(10, wasmgen.KindEvaluation, "Length of data is too short.")
	require.NoError(t, os.WriteFile(path, program, 0o600))

	rootCmd.SetArgs([]string{"eval", path, "--message", "some_data_to_be_signed", "-o", "json"})
	assert.Equal(t, exitOK, Execute())

	rootCmd.SetArgs([]string{"eval", path, "--message", "short", "-o", "json"})
	assert.Equal(t, exitRejected, Execute())

	rootCmd.SetArgs([]string{"eval", filepath.Join(t.TempDir(), "missing.wasm")})
	assert.Equal(t, exitSystemic, Execute())
}
