package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	config "github.com/weisyn/policyvm/internal/config"
	"github.com/weisyn/policyvm/internal/core/engines/wasm"
	log "github.com/weisyn/policyvm/internal/core/infrastructure/log"
	"github.com/weisyn/policyvm/internal/core/infrastructure/metrics"
	"github.com/weisyn/policyvm/pkg/types"
)

// 模块分层
//
// 🏗️ **依赖顺序**：
//   - 基础设施层：配置、日志、指标
//   - 引擎层：共享 wazero 引擎
//   - 应用层：运行时门面
const (
	LayerInfrastructure = "infrastructure"
	LayerEngine         = "engine"
	LayerApplication    = "application"
)

// Bootstrap 负责组装 fx 模块
type Bootstrap struct {
	opts      *options
	appConfig *types.AppConfig
}

// NewBootstrap 创建引导器
func NewBootstrap(opts *options, appConfig *types.AppConfig) *Bootstrap {
	return &Bootstrap{
		opts:      opts,
		appConfig: appConfig,
	}
}

// SetupInfrastructureLayer 基础设施层
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	modules := []fx.Option{
		fx.Supply(b.appConfig),
		config.Module(),  // 1. 配置（不依赖其他）
		log.Module(),     // 2. 日志（依赖配置）
		metrics.Module(), // 3. 指标（依赖配置、日志）
	}
	if b.opts.registerer != nil {
		reg := b.opts.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	return modules
}

// SetupEngineLayer 引擎层
func (b *Bootstrap) SetupEngineLayer() []fx.Option {
	return []fx.Option{
		wasm.Module(),
	}
}

// SetupApplicationLayer 应用层
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	return []fx.Option{
		RuntimeModule(),
	}
}

// SetupModules 按层次组装全部模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var all []fx.Option
	all = append(all, b.SetupInfrastructureLayer()...)
	all = append(all, b.SetupEngineLayer()...)
	all = append(all, b.SetupApplicationLayer()...)
	return all
}
