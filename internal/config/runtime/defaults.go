package runtime

import "time"

// 策略运行时配置默认值
const (
	// defaultFuelLimit 每次调用的燃料预算
	// 足以运行解析一笔交易并匹配几十条ACL的程序，死循环在毫秒级被中止
	defaultFuelLimit uint64 = 10_000

	// defaultInitFuelLimit start 函数与反应器初始化的燃料预算
	// TinyGo 运行时启动加上 go-ethereum 等依赖的包初始化需要数百万条指令
	defaultInitFuelLimit uint64 = 50_000_000

	// defaultMaxMemoryPages 线性内存上限（1024页 = 64MiB）
	defaultMaxMemoryPages uint32 = 1024

	// defaultExecutionTimeout 墙钟超时，0 表示只依赖燃料
	defaultExecutionTimeout time.Duration = 0

	// defaultEnableWASI 默认提供拒绝式的 WASI 宿主模块（TinyGo/Rust 的 wasip1 产物需要）
	defaultEnableWASI = true

	// defaultBytecodeCacheEnabled 插桩字节码缓存默认关闭（每次调用重新校验）
	defaultBytecodeCacheEnabled = false

	// defaultBytecodeCacheLifeWindow 缓存条目存活时间
	defaultBytecodeCacheLifeWindow = 10 * time.Minute

	// defaultBytecodeCacheHardMax 缓存上限（MB）
	defaultBytecodeCacheHardMax = 64
)
