package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weisyn/policyvm/pkg/types"
)

// 执行结果标签
const (
	OutcomeOk                = "ok"
	OutcomeRejected          = "rejected"
	OutcomeOutOfFuel         = "out_of_fuel"
	OutcomeTimeout           = "timeout"
	OutcomeTrap              = "trap"
	OutcomeBindings          = "bindings"
	OutcomeInvalidBytecode   = "invalid_bytecode"
	OutcomeResourceExhausted = "resource_exhausted"
	OutcomeOther             = "other"
)

// Outcome 将执行结果映射为指标标签
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOk
	case types.IsPolicyRejection(err):
		return OutcomeRejected
	case errors.Is(err, types.ErrOutOfFuel):
		return OutcomeOutOfFuel
	case errors.Is(err, types.ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, types.ErrTrap):
		return OutcomeTrap
	case errors.Is(err, types.ErrBindings):
		return OutcomeBindings
	case errors.Is(err, types.ErrInvalidBytecode), errors.Is(err, types.ErrEmptyBytecode):
		return OutcomeInvalidBytecode
	case errors.Is(err, types.ErrResourceExhausted):
		return OutcomeResourceExhausted
	default:
		return OutcomeOther
	}
}

// Collector 策略执行指标
//
// 所有方法允许 nil 接收者，未启用指标时调用方无需判空。
type Collector struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fuel       *prometheus.HistogramVec
	cache      *prometheus.CounterVec
}

// NewCollector 创建指标（未注册）
func NewCollector(namespace string) *Collector {
	return &Collector{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "executions_total",
				Help:      "Total number of policy program invocations by entry point and outcome",
			},
			[]string{"entry", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "execution_duration_seconds",
				Help:      "Wall-clock duration of policy program invocations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms ~ 4s
			},
			[]string{"entry"},
		),
		fuel: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "fuel_consumed",
				Help:      "Fuel consumed per policy program invocation",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
			},
			[]string{"entry"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "bytecode_cache_total",
				Help:      "Instrumented bytecode cache lookups by result",
			},
			[]string{"result"}, // hit, miss
		),
	}
}

// Register 在注册表上注册全部指标；已注册的同名指标会被复用
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil || reg == nil {
		return nil
	}
	if err := register(reg, &c.executions); err != nil {
		return err
	}
	if err := register(reg, &c.cache); err != nil {
		return err
	}
	if err := registerHistogram(reg, &c.duration); err != nil {
		return err
	}
	return registerHistogram(reg, &c.fuel)
}

func register(reg prometheus.Registerer, vec **prometheus.CounterVec) error {
	if err := reg.Register(*vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				*vec = existing
				return nil
			}
		}
		return err
	}
	return nil
}

func registerHistogram(reg prometheus.Registerer, vec **prometheus.HistogramVec) error {
	if err := reg.Register(*vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				*vec = existing
				return nil
			}
		}
		return err
	}
	return nil
}

// ObserveExecution 记录一次执行
func (c *Collector) ObserveExecution(report types.ExecutionReport, err error) {
	if c == nil {
		return
	}
	c.executions.WithLabelValues(report.EntryPoint, Outcome(err)).Inc()
	c.duration.WithLabelValues(report.EntryPoint).Observe(time.Duration(report.Duration).Seconds())
	c.fuel.WithLabelValues(report.EntryPoint).Observe(float64(report.FuelConsumed))
}

// ObserveCache 记录一次字节码缓存查询
func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cache.WithLabelValues(result).Inc()
}
