package config

import (
	"github.com/weisyn/policyvm/internal/config/log"
	"github.com/weisyn/policyvm/internal/config/metrics"
	"github.com/weisyn/policyvm/internal/config/runtime"
	"github.com/weisyn/policyvm/pkg/interfaces/config"
	"github.com/weisyn/policyvm/pkg/types"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	return &Provider{
		appConfig: appConfig,
	}
}

// GetRuntime 获取策略运行时配置
func (p *Provider) GetRuntime() *runtime.RuntimeOptions {
	// runtime.New会处理默认值应用和用户配置覆盖
	return runtime.New(p.appConfig.Runtime).GetOptions()
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	// 生产环境未显式指定级别时不输出调试日志；开发环境默认 debug
	userLogConfig := p.appConfig.Log
	if p.GetEnvironment() == "dev" && (userLogConfig == nil || userLogConfig.Level == nil) {
		merged := types.UserLogConfig{}
		if userLogConfig != nil {
			merged = *userLogConfig
		}
		merged.Level = types.StringPtr("debug")
		userLogConfig = &merged
	}
	return log.New(userLogConfig).GetOptions()
}

// GetMetrics 获取指标配置
func (p *Provider) GetMetrics() *metrics.MetricsOptions {
	return metrics.New(p.appConfig.Metrics)
}

// GetEnvironment 获取运行环境
//
// 未配置或无效值时返回 prod（安全优先）。
func (p *Provider) GetEnvironment() string {
	if p.appConfig.Environment == nil {
		return "prod"
	}
	switch env := *p.appConfig.Environment; env {
	case "dev", "test", "prod":
		return env
	default:
		return "prod"
	}
}

// GetAppConfig 获取原始用户配置
func (p *Provider) GetAppConfig() *types.AppConfig {
	return p.appConfig
}
