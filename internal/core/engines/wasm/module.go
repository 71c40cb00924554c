// Package wasm 策略执行引擎的 fx 装配
package wasm

import (
	"context"

	"go.uber.org/fx"

	"github.com/weisyn/policyvm/internal/core/engines/wasm/runtime"
	"github.com/weisyn/policyvm/internal/core/infrastructure/metrics"
	"github.com/weisyn/policyvm/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/policyvm/pkg/interfaces/config"
	"github.com/weisyn/policyvm/pkg/interfaces/infrastructure/log"
)

// EngineModuleInput 引擎模块的输入依赖
type EngineModuleInput struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider
	Logger    log.Logger         `optional:"true"` // 日志记录器（可选）
	Metrics   *metrics.Collector `optional:"true"` // 指标（可选）
}

// ProvideEngine 创建共享执行引擎，并在应用停止时关闭
func ProvideEngine(input EngineModuleInput) (*runtime.Engine, error) {
	opts := input.Provider.GetRuntime()
	logger := input.Logger
	if logger != nil {
		logger = logger.With("module", "engine-wasm")
	}

	var store *memory.Store
	if opts.BytecodeCache.Enabled {
		s, err := memory.New(opts.BytecodeCache, logger)
		if err != nil {
			return nil, err
		}
		store = s
	}

	engine, err := runtime.NewEngine(context.Background(), runtime.ConfigFromOptions(opts), logger, store, input.Metrics)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	input.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return engine.Close(ctx)
		},
	})

	if logger != nil {
		logger.Info("策略执行引擎已创建")
	}
	return engine, nil
}

// Module WASM 引擎 fx 模块
func Module() fx.Option {
	return fx.Module("engine-wasm",
		fx.Provide(ProvideEngine),
	)
}
