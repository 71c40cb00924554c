// Package runtime 策略运行时配置
package runtime

import (
	"time"

	"github.com/weisyn/policyvm/pkg/types"
)

// RuntimeOptions 策略运行时配置选项
type RuntimeOptions struct {
	// FuelLimit 每次调用的燃料预算
	FuelLimit uint64 `json:"fuel_limit"`

	// InitFuelLimit start 函数与 _initialize 的燃料预算
	InitFuelLimit uint64 `json:"init_fuel_limit"`

	// MaxMemoryPages 线性内存上限（页）
	MaxMemoryPages uint32 `json:"max_memory_pages"`

	// ExecutionTimeout 墙钟超时，0 表示不限制
	ExecutionTimeout time.Duration `json:"execution_timeout"`

	// EnableWASI 是否提供拒绝式 WASI 宿主模块
	EnableWASI bool `json:"enable_wasi"`

	// CompilationCacheDir 编译缓存目录，空表示内存缓存
	CompilationCacheDir string `json:"compilation_cache_dir"`

	// BytecodeCache 插桩字节码缓存
	BytecodeCache BytecodeCacheOptions `json:"bytecode_cache"`
}

// BytecodeCacheOptions 插桩字节码缓存选项
type BytecodeCacheOptions struct {
	Enabled          bool          `json:"enabled"`
	LifeWindow       time.Duration `json:"life_window"`
	HardMaxCacheSize int           `json:"hard_max_cache_size"` // MB
}

// Config 策略运行时配置实现
type Config struct {
	options *RuntimeOptions
}

// New 创建运行时配置，未设置的字段使用默认值
//
// 无法解析的时长字符串保留默认值，不报错（配置校验由 internal/config.Validate 负责）。
func New(userConfig *types.UserRuntimeConfig) *Config {
	options := createDefaultRuntimeOptions()
	applyUserRuntimeConfig(options, userConfig)
	return &Config{options: options}
}

// createDefaultRuntimeOptions 创建默认运行时配置
func createDefaultRuntimeOptions() *RuntimeOptions {
	return &RuntimeOptions{
		FuelLimit:        defaultFuelLimit,
		InitFuelLimit:    defaultInitFuelLimit,
		MaxMemoryPages:   defaultMaxMemoryPages,
		ExecutionTimeout: defaultExecutionTimeout,
		EnableWASI:       defaultEnableWASI,
		BytecodeCache: BytecodeCacheOptions{
			Enabled:          defaultBytecodeCacheEnabled,
			LifeWindow:       defaultBytecodeCacheLifeWindow,
			HardMaxCacheSize: defaultBytecodeCacheHardMax,
		},
	}
}

func applyUserRuntimeConfig(options *RuntimeOptions, cfg *types.UserRuntimeConfig) {
	if cfg == nil {
		return
	}
	if cfg.FuelLimit != nil {
		options.FuelLimit = *cfg.FuelLimit
	}
	if cfg.InitFuelLimit != nil {
		options.InitFuelLimit = *cfg.InitFuelLimit
	}
	if cfg.MaxMemoryPages != nil {
		options.MaxMemoryPages = *cfg.MaxMemoryPages
	}
	if cfg.ExecutionTimeout != nil {
		if d, err := time.ParseDuration(*cfg.ExecutionTimeout); err == nil {
			options.ExecutionTimeout = d
		}
	}
	if cfg.EnableWASI != nil {
		options.EnableWASI = *cfg.EnableWASI
	}
	if cfg.CompilationCacheDir != nil {
		options.CompilationCacheDir = *cfg.CompilationCacheDir
	}
	if bc := cfg.BytecodeCache; bc != nil {
		if bc.Enabled != nil {
			options.BytecodeCache.Enabled = *bc.Enabled
		}
		if bc.LifeWindow != nil {
			if d, err := time.ParseDuration(*bc.LifeWindow); err == nil {
				options.BytecodeCache.LifeWindow = d
			}
		}
		if bc.HardMaxCacheSize != nil {
			options.BytecodeCache.HardMaxCacheSize = *bc.HardMaxCacheSize
		}
	}
}

// GetOptions 获取完整的运行时配置选项
func (c *Config) GetOptions() *RuntimeOptions {
	return c.options
}
