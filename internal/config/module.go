// Package config 提供应用配置管理功能
package config

import (
	"go.uber.org/fx"

	logconfig "github.com/weisyn/policyvm/internal/config/log"
	metricsconfig "github.com/weisyn/policyvm/internal/config/metrics"
	runtimeconfig "github.com/weisyn/policyvm/internal/config/runtime"
	"github.com/weisyn/policyvm/pkg/interfaces/config"
	"github.com/weisyn/policyvm/pkg/types"
)

// ConfigParams 定义配置模块的依赖参数
type ConfigParams struct {
	fx.In

	// 用户配置（可选，缺省时全部使用默认值）
	AppConfig *types.AppConfig `optional:"true"`
}

// ConfigOutput 定义配置模块的输出结构
type ConfigOutput struct {
	fx.Out

	// 配置提供者
	Provider config.Provider
}

// Module 返回配置模块
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			ProvideConfigServices,
			// 提供具体的配置类型用于依赖注入
			func(provider config.Provider) *runtimeconfig.RuntimeOptions {
				return provider.GetRuntime()
			},
			func(provider config.Provider) *logconfig.LogOptions {
				return provider.GetLog()
			},
			func(provider config.Provider) *metricsconfig.MetricsOptions {
				return provider.GetMetrics()
			},
		),
	)
}

// ProvideConfigServices 提供配置服务
func ProvideConfigServices(params ConfigParams) (ConfigOutput, error) {
	if err := Validate(params.AppConfig); err != nil {
		return ConfigOutput{}, err
	}
	return ConfigOutput{
		Provider: NewProvider(params.AppConfig),
	}, nil
}
