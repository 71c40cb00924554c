package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/policyvm/internal/testutil/wasmgen"
	"github.com/weisyn/policyvm/pkg/types"
)

func quietConfig() *types.AppConfig {
	return &types.AppConfig{
		Log: &types.UserLogConfig{Level: types.StringPtr("error")},
	}
}

func startApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	a, err := New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a
}

func TestNewWiresRuntime(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := startApp(t, WithAppConfig(quietConfig()), WithRegisterer(reg))

	require.NotNil(t, a.Runtime)
	require.NotNil(t, a.Logger)
	assert.Equal(t, uint64(10_000), a.Runtime.Fuel())

	ctx := context.Background()
	program := wasmgen.LengthCheck(10, wasmgen.KindEvaluation, "Length of data is too short.")

	assert.NoError(t, a.Runtime.Evaluate(ctx, program, types.SignatureRequest{Message: []byte("long enough message")}, nil, nil))

	err := a.Runtime.Evaluate(ctx, program, types.SignatureRequest{Message: []byte("short")}, nil, nil)
	perr, ok := types.AsProgramError(err)
	require.True(t, ok)
	assert.Equal(t, "Length of data is too short.", perr.Message)

	n, err := testutil.GatherAndCount(reg, "policyvm_policy_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRuntimeConfigApplied(t *testing.T) {
	cfg := quietConfig()
	cfg.Runtime = &types.UserRuntimeConfig{FuelLimit: types.Uint64Ptr(1)}
	cfg.Metrics = &types.UserMetricsConfig{Enabled: types.BoolPtr(false)}
	a := startApp(t, WithAppConfig(cfg))

	assert.Equal(t, uint64(1), a.Runtime.Fuel())
	err := a.Runtime.Evaluate(context.Background(), wasmgen.InfiniteLoop(), types.SignatureRequest{Message: []byte("x")}, nil, nil)
	assert.ErrorIs(t, err, types.ErrOutOfFuel)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policyvm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  fuel_limit: 250\nlog:\n  level: error\nmetrics:\n  enabled: false\n"), 0o600))

	a := startApp(t, WithConfigFile(path))
	assert.Equal(t, uint64(250), a.Runtime.Fuel())

	t.Run("环境变量", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, path)
		b := startApp(t)
		assert.Equal(t, uint64(250), b.Runtime.Fuel())
	})
}

func TestInvalidConfig(t *testing.T) {
	cfg := quietConfig()
	cfg.Runtime = &types.UserRuntimeConfig{FuelLimit: types.Uint64Ptr(0)}

	_, err := New(context.Background(), WithAppConfig(cfg))
	require.Error(t, err)

	_, err = New(context.Background(), WithConfigFile(filepath.Join(t.TempDir(), "missing.json")))
	require.Error(t, err)
}

func TestWithRuntime(t *testing.T) {
	a := startApp(t, WithRuntime(&types.UserRuntimeConfig{FuelLimit: types.Uint64Ptr(42)}), WithRegisterer(prometheus.NewRegistry()))
	assert.Equal(t, uint64(42), a.Runtime.Fuel())
}
