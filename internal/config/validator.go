package config

import (
	"fmt"
	"time"

	"github.com/weisyn/policyvm/pkg/types"
)

// ValidationError 配置验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("配置验证失败 [%s]: %s", e.Field, e.Message)
}

// Validate 校验用户配置
//
// 只校验用户显式设置的字段；未设置的字段由默认值补齐。
func Validate(cfg *types.AppConfig) error {
	if cfg == nil || cfg.Runtime == nil {
		return nil
	}
	rt := cfg.Runtime
	if rt.FuelLimit != nil && *rt.FuelLimit == 0 {
		return &ValidationError{Field: "runtime.fuel_limit", Message: "必须大于0"}
	}
	if rt.InitFuelLimit != nil && *rt.InitFuelLimit == 0 {
		return &ValidationError{Field: "runtime.init_fuel_limit", Message: "必须大于0"}
	}
	if rt.MaxMemoryPages != nil && (*rt.MaxMemoryPages == 0 || *rt.MaxMemoryPages > 65536) {
		return &ValidationError{
			Field:   "runtime.max_memory_pages",
			Message: fmt.Sprintf("必须在 1..65536 之间，当前为 %d", *rt.MaxMemoryPages),
		}
	}
	if rt.ExecutionTimeout != nil && *rt.ExecutionTimeout != "" {
		d, err := time.ParseDuration(*rt.ExecutionTimeout)
		if err != nil {
			return &ValidationError{Field: "runtime.execution_timeout", Message: err.Error()}
		}
		if d < 0 {
			return &ValidationError{Field: "runtime.execution_timeout", Message: "不能为负数"}
		}
	}
	if bc := rt.BytecodeCache; bc != nil && bc.LifeWindow != nil {
		if _, err := time.ParseDuration(*bc.LifeWindow); err != nil {
			return &ValidationError{Field: "runtime.bytecode_cache.life_window", Message: err.Error()}
		}
	}
	return nil
}
