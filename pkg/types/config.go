// Package types provides configuration type definitions.
package types

// AppConfig 应用程序根配置
// 只包含JSON/YAML配置文件解析所需的结构，不包含任何内部字段
// 默认值和完整配置结构在 internal/config/*/defaults.go 和 internal/config/*/config.go 中定义
//
// 所有字段均为指针：nil 表示"用户未设置"，由各模块默认值补齐。
type AppConfig struct {
	// 应用程序基本信息
	AppName *string `json:"app_name,omitempty" yaml:"app_name,omitempty"` // 应用名称
	Version *string `json:"version,omitempty" yaml:"version,omitempty"`   // 应用版本

	// Environment 运行环境：dev | test | prod
	// 只影响日志级别等运维属性，不影响授权结果
	Environment *string `json:"environment,omitempty" yaml:"environment,omitempty"`

	// 策略运行时配置 - 对应配置文件中的 runtime 字段
	Runtime *UserRuntimeConfig `json:"runtime,omitempty" yaml:"runtime,omitempty"`

	// 日志配置
	Log *UserLogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// 指标配置
	Metrics *UserMetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// UserRuntimeConfig 用户策略运行时配置
// 只包含配置文件中实际出现的字段
type UserRuntimeConfig struct {
	// FuelLimit 每次调用的燃料预算（默认 10000）
	FuelLimit *uint64 `json:"fuel_limit,omitempty" yaml:"fuel_limit,omitempty"`

	// InitFuelLimit start 函数与 _initialize 的燃料预算（默认 50000000），与每次调用的预算分开计量
	InitFuelLimit *uint64 `json:"init_fuel_limit,omitempty" yaml:"init_fuel_limit,omitempty"`

	// MaxMemoryPages 线性内存上限（页，64KiB/页，默认 1024）
	MaxMemoryPages *uint32 `json:"max_memory_pages,omitempty" yaml:"max_memory_pages,omitempty"`

	// ExecutionTimeout 墙钟超时，Go duration 字符串（如 "2s"），空或 "0" 表示不限制
	ExecutionTimeout *string `json:"execution_timeout,omitempty" yaml:"execution_timeout,omitempty"`

	// EnableWASI 是否向程序提供（拒绝式的）wasi_snapshot_preview1 宿主模块（默认 true）
	EnableWASI *bool `json:"enable_wasi,omitempty" yaml:"enable_wasi,omitempty"`

	// CompilationCacheDir 编译缓存目录，空表示仅使用内存缓存
	CompilationCacheDir *string `json:"compilation_cache_dir,omitempty" yaml:"compilation_cache_dir,omitempty"`

	// BytecodeCache 插桩后字节码缓存（默认关闭）
	BytecodeCache *UserBytecodeCacheConfig `json:"bytecode_cache,omitempty" yaml:"bytecode_cache,omitempty"`
}

// UserBytecodeCacheConfig 用户字节码缓存配置
type UserBytecodeCacheConfig struct {
	Enabled          *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`                       // 是否启用
	LifeWindow       *string `json:"life_window,omitempty" yaml:"life_window,omitempty"`               // 条目存活时间，如 "10m"
	HardMaxCacheSize *int    `json:"hard_max_cache_size,omitempty" yaml:"hard_max_cache_size,omitempty"` // 缓存上限（MB）
}

// UserLogConfig 用户日志配置
// 只包含配置文件中实际出现的字段
type UserLogConfig struct {
	Level         *string `json:"level,omitempty" yaml:"level,omitempty"`                   // 日志级别：debug, info, warn, error, fatal
	FilePath      *string `json:"file_path,omitempty" yaml:"file_path,omitempty"`           // 日志文件路径
	EnableConsole *bool   `json:"enable_console,omitempty" yaml:"enable_console,omitempty"` // 是否同时输出到控制台
	Format        *string `json:"format,omitempty" yaml:"format,omitempty"`                 // json | console
}

// UserMetricsConfig 用户指标配置
type UserMetricsConfig struct {
	Enabled   *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`     // 是否采集指标（默认 true）
	Namespace *string `json:"namespace,omitempty" yaml:"namespace,omitempty"` // 指标命名空间（默认 policyvm）
}

// StringPtr 返回字符串指针（构造用户配置时使用）
func StringPtr(s string) *string { return &s }

// BoolPtr 返回布尔指针
func BoolPtr(b bool) *bool { return &b }

// Uint64Ptr 返回 uint64 指针
func Uint64Ptr(v uint64) *uint64 { return &v }

// Uint32Ptr 返回 uint32 指针
func Uint32Ptr(v uint32) *uint32 { return &v }
