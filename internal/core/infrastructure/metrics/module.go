// Package metrics 提供策略执行的 Prometheus 指标
//
// 指标只注册到调用方提供的 prometheus.Registerer，本模块不暴露 HTTP 端点。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/policyvm/pkg/interfaces/config"
	"github.com/weisyn/policyvm/pkg/interfaces/infrastructure/log"
)

// ModuleParams 指标模块依赖
type ModuleParams struct {
	fx.In

	Provider   config.Provider
	Registerer prometheus.Registerer `optional:"true"`
	Logger     log.Logger            `optional:"true"`
}

// ProvideCollector 创建并注册指标
//
// 指标关闭时返回 nil；未注入 Registerer 时使用 prometheus.DefaultRegisterer。
func ProvideCollector(p ModuleParams) (*Collector, error) {
	opts := p.Provider.GetMetrics()
	if opts == nil || !opts.Enabled {
		if p.Logger != nil {
			p.Logger.Debug("策略执行指标未启用")
		}
		return nil, nil
	}

	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := NewCollector(opts.Namespace)
	if err := c.Register(reg); err != nil {
		return nil, err
	}
	if p.Logger != nil {
		p.Logger.Infof("策略执行指标已注册: namespace=%s", opts.Namespace)
	}
	return c, nil
}

// Module 返回 metrics 模块的 fx.Option
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideCollector),
	)
}
