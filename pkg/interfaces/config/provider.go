// Package config provides configuration provider interfaces.
package config

import (
	logconfig "github.com/weisyn/policyvm/internal/config/log"
	metricsconfig "github.com/weisyn/policyvm/internal/config/metrics"
	runtimeconfig "github.com/weisyn/policyvm/internal/config/runtime"
	"github.com/weisyn/policyvm/pkg/types"
)

// Provider 配置提供者接口
//
// 各基础设施模块通过 fx 注入 Provider，只读取自己关心的配置区块。
type Provider interface {
	// GetRuntime 获取策略运行时配置
	GetRuntime() *runtimeconfig.RuntimeOptions

	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetMetrics 获取指标配置
	GetMetrics() *metricsconfig.MetricsOptions

	// GetEnvironment 获取运行环境（dev | test | prod），未配置时为 prod
	GetEnvironment() string

	// GetAppConfig 获取原始用户配置
	GetAppConfig() *types.AppConfig
}
