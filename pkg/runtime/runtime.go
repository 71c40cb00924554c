// Package runtime 策略运行时对外入口
//
// 🎯 **核心职责**：
// 在有界沙箱中运行不可信的策略程序，判定签名请求是否被授权。
//
// 📋 **使用方式**：
//
//	rt, err := runtime.New(runtime.WithFuel(10_000))
//	if err != nil { ... }
//	defer rt.Close(ctx)
//	if err := rt.Evaluate(ctx, program, req, config, oracleData); err != nil {
//	    // 不签名；types.IsSystemic(err) 为 true 时需要告警
//	}
//
// Runtime 构造后不可变，可被多个 goroutine 并发使用；每次调用获得独立的实例与燃料。
package runtime

import (
	"context"

	runtimeconfig "github.com/weisyn/policyvm/internal/config/runtime"
	wasmruntime "github.com/weisyn/policyvm/internal/core/engines/wasm/runtime"
	"github.com/weisyn/policyvm/internal/core/infrastructure/metrics"
	"github.com/weisyn/policyvm/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/policyvm/pkg/interfaces/policy"
	"github.com/weisyn/policyvm/pkg/types"
)

// ModuleInfo 程序静态检查结果
type ModuleInfo = wasmruntime.ModuleInfo

// Runtime 策略运行时
type Runtime struct {
	engine *wasmruntime.Engine
	fuel   uint64
}

var _ policy.Evaluator = (*Runtime)(nil)

// New 创建策略运行时
func New(opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	var collector *metrics.Collector
	if o.registerer != nil {
		namespace := o.namespace
		if namespace == "" {
			namespace = "policyvm"
		}
		collector = metrics.NewCollector(namespace)
		if err := collector.Register(o.registerer); err != nil {
			return nil, err
		}
	}

	var store *memory.Store
	if o.bytecodeCache {
		s, err := memory.New(runtimeconfig.BytecodeCacheOptions{
			Enabled:          true,
			LifeWindow:       o.cacheLifeWindow,
			HardMaxCacheSize: o.cacheMaxSizeMB,
		}, o.logger)
		if err != nil {
			return nil, err
		}
		store = s
	}

	engine, err := wasmruntime.NewEngine(context.Background(), &wasmruntime.Config{
		UseCompiler:         o.useCompiler,
		MaxMemoryPages:      o.maxMemoryPages,
		ExecutionTimeout:    o.timeout,
		EnableWASI:          o.enableWASI,
		CompilationCacheDir: o.compilationCacheDir,
		InitFuel:            o.initFuel,
	}, o.logger, store, collector)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return &Runtime{engine: engine, fuel: o.fuel}, nil
}

// NewWithEngine 使用已构造的引擎创建运行时（依赖注入场景）
func NewWithEngine(engine *wasmruntime.Engine, fuel uint64) *Runtime {
	return &Runtime{engine: engine, fuel: fuel}
}

// Fuel 每次调用的燃料预算
func (r *Runtime) Fuel() uint64 { return r.fuel }

// Evaluate 运行程序的 evaluate 入口
//
// 返回 nil 表示授权；程序拒绝返回 types.ErrProgram（包装 *types.ProgramError）；
// 其余为系统性错误：ErrEmptyBytecode、ErrInvalidBytecode、ErrBindings、ErrOutOfFuel、
// ErrTrap、ErrTimeout、ErrResourceExhausted。
func (r *Runtime) Evaluate(ctx context.Context, program []byte, req types.SignatureRequest, config []byte, oracleData [][]byte) error {
	return r.engine.Evaluate(ctx, program, types.EvaluateInput{
		Request:    req,
		Config:     config,
		OracleData: oracleData,
	}, r.fuel)
}

// CustomHash 运行程序的 custom_hash 入口
func (r *Runtime) CustomHash(ctx context.Context, program []byte, message []byte) ([32]byte, error) {
	return r.engine.CustomHash(ctx, program, message, r.fuel)
}

// Inspect 静态检查程序（不执行）
func (r *Runtime) Inspect(ctx context.Context, program []byte) (*ModuleInfo, error) {
	return r.engine.Inspect(ctx, program)
}

// Close 释放共享运行时
//
// 通过 NewWithEngine 创建时，引擎由提供方负责关闭。
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}
