package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/policyvm/internal/config"
	logconfig "github.com/weisyn/policyvm/internal/config/log"
	"github.com/weisyn/policyvm/pkg/types"
)

// newJSONLogger 创建输出到缓冲区的 JSON 日志记录器
func newJSONLogger(t *testing.T, level string) (*bytes.Buffer, *Logger) {
	t.Helper()
	var buf bytes.Buffer
	cfg := logconfig.New(&logconfig.LogOptions{
		Level:     level,
		ToConsole: true,
		Format:    "json",
	})
	logger, err := NewWithWriter(cfg, &buf)
	require.NoError(t, err)
	return &buf, logger.(*Logger)
}

// TestInfoLog 测试信息级别日志
func TestInfoLog(t *testing.T) {
	buf, logger := newJSONLogger(t, InfoLevel)
	logger.Info("测试信息日志")
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "测试信息日志")
	assert.Contains(t, buf.String(), `"level":"info"`)
}

// TestLevelFilter 测试级别过滤
func TestLevelFilter(t *testing.T) {
	buf, logger := newJSONLogger(t, WarnLevel)
	logger.Debug("调试日志")
	logger.Info("信息日志")
	logger.Warn("警告日志")

	out := buf.String()
	assert.NotContains(t, out, "调试日志")
	assert.NotContains(t, out, "信息日志")
	assert.Contains(t, out, "警告日志")
}

// TestStructuredLogging 测试结构化日志
func TestStructuredLogging(t *testing.T) {
	buf, logger := newJSONLogger(t, InfoLevel)
	logger.With("key1", "value1", "key2", 42).Info("结构化日志测试")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
	assert.Equal(t, "结构化日志测试", entry["message"])
}

// TestOddFieldsDropped 奇数个字段时忽略最后一个
func TestOddFieldsDropped(t *testing.T) {
	fields := toZapFields("a", 1, "dangling")
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Key)
}

// TestNewModuleLogger 测试 module 字段
func TestNewModuleLogger(t *testing.T) {
	assert.Nil(t, NewModuleLogger(nil, "policy"))

	buf, logger := newJSONLogger(t, InfoLevel)
	NewModuleLogger(logger, "policy").Info("hello")
	assert.Contains(t, buf.String(), `"module":"policy"`)
}

// TestFileOutput 测试文件输出与目录创建
func TestFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "policyvm.log")
	cfg := logconfig.New(&types.UserLogConfig{
		Level:    types.StringPtr("debug"),
		FilePath: types.StringPtr(logPath),
	})
	assert.False(t, cfg.IsConsoleEnabled())

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Debug("调试日志")
	logger.Error("错误日志")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "调试日志")
	assert.Contains(t, string(content), "错误日志")
}

// TestProvideServices 测试 fx 提供函数
func TestProvideServices(t *testing.T) {
	provider := config.NewProvider(&types.AppConfig{
		Log: &types.UserLogConfig{Level: types.StringPtr("error"), EnableConsole: types.BoolPtr(false)},
	})
	out, err := ProvideServices(ModuleParams{Provider: provider})
	require.NoError(t, err)
	require.NotNil(t, out.Logger)
	require.NotNil(t, out.ZapLogger)
	assert.Same(t, out.Logger, GetLogger())

	ResetDefault()
}
