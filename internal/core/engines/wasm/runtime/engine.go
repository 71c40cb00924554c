// Package runtime 基于 wazero 的策略程序执行引擎
//
// 🎯 **核心职责**：封装共享的 wazero 运行时，提供字节码校验、插桩、编译、
// 实例化与入口调用，并把各种失败映射为 pkg/types 中的类型化错误。
//
// 📋 **设计特点**：
// - 引擎构造后不可变，可被多个 goroutine 并发使用
// - 每次调用独立实例（匿名模块名、独立线性内存、独立燃料全局变量），用后即毁
// - 只共享 wazero 运行时与编译缓存；调用之间不传递任何状态
// - WASI 以拒绝式配置提供：无文件系统、无环境变量与参数、伪时钟、随机数源总是失败
package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/weisyn/policyvm/internal/core/engines/wasm/metering"
	"github.com/weisyn/policyvm/internal/core/infrastructure/metrics"
	"github.com/weisyn/policyvm/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/policyvm/pkg/types"
)

// errRandomUnavailable 程序请求随机数时返回的错误
var errRandomUnavailable = errors.New("randomness is not available to policy programs")

// failingRandom 总是失败的随机数源
type failingRandom struct{}

func (failingRandom) Read([]byte) (int, error) { return 0, errRandomUnavailable }

// Engine 策略执行引擎
type Engine struct {
	logger log.Logger

	// wazero运行时实例
	runtime wazero.Runtime

	// 编译缓存（wazero 内建，按模块内容寻址）
	compilationCache wazero.CompilationCache

	// 插桩字节码缓存（可选）
	bytecode *memory.Store

	// 指标（可选）
	metrics *metrics.Collector

	config *Config
}

// NewEngine 创建执行引擎
//
// 📋 **参数说明**：
//   - config: 引擎配置，nil 使用默认配置
//   - logger: 日志服务（可为 nil）
//   - bytecode: 插桩字节码缓存（可为 nil）
//   - collector: 指标（可为 nil）
func NewEngine(ctx context.Context, config *Config, logger log.Logger, bytecode *memory.Store, collector *metrics.Collector) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var cache wazero.CompilationCache
	if config.CompilationCacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(config.CompilationCacheDir)
		if err != nil {
			return nil, fmt.Errorf("创建编译缓存失败: %w", err)
		}
		cache = c
	} else {
		cache = wazero.NewCompilationCache()
	}

	var rc wazero.RuntimeConfig
	if config.UseCompiler {
		rc = wazero.NewRuntimeConfig()
	} else {
		rc = wazero.NewRuntimeConfigInterpreter()
	}
	rc = rc.WithCompilationCache(cache).
		WithCloseOnContextDone(true)
	if config.MaxMemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MaxMemoryPages)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rc)

	// WASI 必须在程序模块实例化之前实例化；宿主能力由每次调用的 ModuleConfig 控制
	if config.EnableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			_ = r.Close(ctx)
			_ = cache.Close(ctx)
			return nil, fmt.Errorf("WASI模块实例化失败: %w", err)
		}
	}

	if logger != nil {
		logger.Debugf("策略执行引擎已创建: compiler=%v, max_pages=%d, timeout=%s, wasi=%v, bytecode_cache=%v",
			config.UseCompiler, config.MaxMemoryPages, config.ExecutionTimeout, config.EnableWASI, bytecode != nil)
	}

	return &Engine{
		logger:           logger,
		runtime:          r,
		compilationCache: cache,
		bytecode:         bytecode,
		metrics:          collector,
		config:           config,
	}, nil
}

// Config 引擎配置（只读）
func (e *Engine) Config() Config { return *e.config }

// Close 关闭运行时与缓存
func (e *Engine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if cerr := e.compilationCache.Close(ctx); err == nil {
		err = cerr
	}
	if e.bytecode != nil {
		if cerr := e.bytecode.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// compiled 一次调用使用的编译结果
type compiled struct {
	module   wazero.CompiledModule
	hasInit  bool
	hasStart bool
}

// instrument 插桩（优先命中字节码缓存）
func (e *Engine) instrument(program []byte, fuel uint64) ([]byte, error) {
	var key string
	if e.bytecode != nil {
		key = memory.Key(program, fuel)
		if cached, ok := e.bytecode.Get(key); ok {
			e.metrics.ObserveCache(true)
			return cached, nil
		}
		e.metrics.ObserveCache(false)
	}

	res, err := metering.Instrument(program, fuel)
	if err != nil {
		return nil, err
	}
	if e.bytecode != nil {
		// 写入失败（条目过大等）只影响性能
		_ = e.bytecode.Set(key, res.Bytecode)
	}
	return res.Bytecode, nil
}

// compile 校验、插桩并编译程序
func (e *Engine) compile(ctx context.Context, program []byte, fuel uint64) (*compiled, error) {
	instrumented, err := e.instrument(program, fuel)
	if err != nil {
		return nil, types.WrapInvalidBytecodeError(len(program), err)
	}

	cm, err := e.runtime.CompileModule(ctx, instrumented)
	if err != nil {
		return nil, types.WrapInvalidBytecodeError(len(program), err)
	}
	if err := checkImports(cm, e.config.EnableWASI); err != nil {
		_ = cm.Close(ctx)
		return nil, types.WrapInvalidBytecodeError(len(program), err)
	}
	if err := checkExports(cm); err != nil {
		_ = cm.Close(ctx)
		return nil, err
	}

	functions := cm.ExportedFunctions()
	_, hasInit := functions[abi.ExportInitialize]
	_, hasStart := functions[metering.StartExport]
	return &compiled{module: cm, hasInit: hasInit, hasStart: hasStart}, nil
}

// moduleConfig 每次调用的拒绝式模块配置
func moduleConfig() wazero.ModuleConfig {
	return wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithRandSource(failingRandom{})
}
