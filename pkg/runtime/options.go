package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	wasmruntime "github.com/weisyn/policyvm/internal/core/engines/wasm/runtime"
	"github.com/weisyn/policyvm/pkg/interfaces/infrastructure/log"
)

// DefaultFuel 每次调用的默认燃料预算
const DefaultFuel uint64 = 10_000

// DefaultInitFuel start 函数与 _initialize 的默认燃料预算
const DefaultInitFuel = wasmruntime.DefaultInitFuel

// Option 运行时构造选项
type Option func(*options)

type options struct {
	fuel                uint64
	initFuel            uint64
	maxMemoryPages      uint32
	timeout             time.Duration
	enableWASI          bool
	useCompiler         bool
	compilationCacheDir string

	logger log.Logger

	registerer prometheus.Registerer
	namespace  string

	bytecodeCache   bool
	cacheLifeWindow time.Duration
	cacheMaxSizeMB  int
}

func defaultOptions() *options {
	return &options{
		fuel:           DefaultFuel,
		initFuel:       DefaultInitFuel,
		maxMemoryPages: 1024,
		enableWASI:     true,
		useCompiler:    true,
	}
}

// WithFuel 设置每次调用的燃料预算
//
// 预算为 0 时任何程序都会在第一条指令前耗尽燃料。
func WithFuel(fuel uint64) Option {
	return func(o *options) { o.fuel = fuel }
}

// WithInitFuel 设置 start 函数与 _initialize 的燃料预算
//
// 初始化每次调用都会重新执行，但不占用 WithFuel 设置的调用预算。
func WithInitFuel(fuel uint64) Option {
	return func(o *options) { o.initFuel = fuel }
}

// WithMaxMemoryPages 设置线性内存上限（页，64KiB/页）
func WithMaxMemoryPages(pages uint32) Option {
	return func(o *options) { o.maxMemoryPages = pages }
}

// WithTimeout 设置单次调用的墙钟超时，0 表示不限制
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithWASI 是否提供拒绝式 WASI 宿主模块
func WithWASI(enabled bool) Option {
	return func(o *options) { o.enableWASI = enabled }
}

// WithInterpreter 使用 wazero 解释器而不是编译器
func WithInterpreter() Option {
	return func(o *options) { o.useCompiler = false }
}

// WithCompilationCacheDir 将编译结果缓存到目录
func WithCompilationCacheDir(dir string) Option {
	return func(o *options) { o.compilationCacheDir = dir }
}

// WithLogger 设置日志记录器
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics 在 reg 上注册执行指标
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(o *options) {
		o.registerer = reg
		o.namespace = namespace
	}
}

// WithBytecodeCache 启用插桩字节码缓存
func WithBytecodeCache(lifeWindow time.Duration, maxSizeMB int) Option {
	return func(o *options) {
		o.bytecodeCache = true
		o.cacheLifeWindow = lifeWindow
		o.cacheMaxSizeMB = maxSizeMB
	}
}
