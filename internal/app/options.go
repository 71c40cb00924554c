package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/weisyn/policyvm/pkg/types"
)

// Option 应用程序选项函数类型
type Option func(*options)

// options 应用程序选项
type options struct {
	// 配置文件路径（.json / .yaml / .yml）
	configFilePath string

	// 用户配置（优先级高于 configFilePath）
	appConfig *types.AppConfig

	// 指标注册表，nil 时使用 prometheus.DefaultRegisterer
	registerer prometheus.Registerer
}

// WithConfigFile 设置配置文件路径
func WithConfigFile(configPath string) Option {
	return func(o *options) {
		o.configFilePath = configPath
	}
}

// WithAppConfig 直接提供用户配置，不再读取配置文件
func WithAppConfig(cfg *types.AppConfig) Option {
	return func(o *options) {
		o.appConfig = cfg
	}
}

// WithRuntime 覆盖运行时配置
func WithRuntime(userRuntimeConfig *types.UserRuntimeConfig) Option {
	return func(o *options) {
		if o.appConfig == nil {
			o.appConfig = &types.AppConfig{}
		}
		o.appConfig.Runtime = userRuntimeConfig
	}
}

// WithRegisterer 设置指标注册表
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// newOptions 创建选项
func newOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
