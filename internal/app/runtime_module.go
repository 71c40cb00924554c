package app

import (
	"go.uber.org/fx"

	wasmruntime "github.com/weisyn/policyvm/internal/core/engines/wasm/runtime"
	"github.com/weisyn/policyvm/pkg/interfaces/config"
	"github.com/weisyn/policyvm/pkg/interfaces/policy"
	pkgruntime "github.com/weisyn/policyvm/pkg/runtime"
)

// RuntimeModuleInput 运行时门面的依赖
type RuntimeModuleInput struct {
	fx.In

	Engine   *wasmruntime.Engine
	Provider config.Provider
}

// RuntimeModuleOutput 运行时门面的输出
type RuntimeModuleOutput struct {
	fx.Out

	Runtime   *pkgruntime.Runtime
	Evaluator policy.Evaluator
}

// ProvideRuntime 以共享引擎和配置的燃料预算构造运行时门面
//
// 引擎由 engine-wasm 模块的生命周期负责关闭，这里不再注册关闭钩子。
func ProvideRuntime(input RuntimeModuleInput) RuntimeModuleOutput {
	rt := pkgruntime.NewWithEngine(input.Engine, input.Provider.GetRuntime().FuelLimit)
	return RuntimeModuleOutput{
		Runtime:   rt,
		Evaluator: rt,
	}
}

// RuntimeModule 运行时门面 fx 模块
func RuntimeModule() fx.Option {
	return fx.Module("runtime",
		fx.Provide(ProvideRuntime),
	)
}
