package runtime

import (
	"time"

	runtimeconfig "github.com/weisyn/policyvm/internal/config/runtime"
)

// DefaultInitFuel start 函数与 _initialize 的默认燃料预算
//
// TinyGo 反应器的运行时启动与包初始化远超单次调用预算，初始化单独计量。
const DefaultInitFuel uint64 = 50_000_000

// Config 引擎配置
//
// 控制共享 wazero 运行时的行为；调用燃料预算按调用传入，不属于引擎配置。
type Config struct {
	// 编译模式：true 使用编译器模式（平台支持时），false 使用解释器模式
	UseCompiler bool

	// 线性内存上限（页，64KiB/页）
	MaxMemoryPages uint32

	// 单次调用的墙钟超时，0 表示不限制
	ExecutionTimeout time.Duration

	// 是否提供拒绝式 wasi_snapshot_preview1 宿主模块
	EnableWASI bool

	// 编译缓存目录，空表示仅内存缓存
	CompilationCacheDir string

	// start 函数与 _initialize 的燃料预算，耗尽时返回 ErrOutOfFuel
	InitFuel uint64
}

// DefaultConfig 默认引擎配置
func DefaultConfig() *Config {
	return &Config{
		UseCompiler:    true,
		MaxMemoryPages: 1024, // 64MiB
		EnableWASI:     true,
		InitFuel:       DefaultInitFuel,
	}
}

// ConfigFromOptions 从运行时配置选项构建引擎配置
func ConfigFromOptions(opts *runtimeconfig.RuntimeOptions) *Config {
	cfg := DefaultConfig()
	if opts == nil {
		return cfg
	}
	if opts.MaxMemoryPages > 0 {
		cfg.MaxMemoryPages = opts.MaxMemoryPages
	}
	cfg.ExecutionTimeout = opts.ExecutionTimeout
	cfg.EnableWASI = opts.EnableWASI
	cfg.CompilationCacheDir = opts.CompilationCacheDir
	if opts.InitFuelLimit > 0 {
		cfg.InitFuel = opts.InitFuelLimit
	}
	return cfg
}
