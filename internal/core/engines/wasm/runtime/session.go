package runtime

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/weisyn/policyvm/internal/core/engines/wasm/execution"
	"github.com/weisyn/policyvm/internal/core/engines/wasm/metering"
	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

// session 一次调用期间持有的资源
type session struct {
	engine   *Engine
	ec       *execution.Context
	compiled *compiled
	mod      api.Module

	// initConsumed 初始化阶段消耗的燃料，不计入调用预算
	initConsumed uint64
}

// call 调用导出函数并映射失败
func (s *session) call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	return s.callWithBudget(ctx, name, s.ec.Budget(), params...)
}

func (s *session) callWithBudget(ctx context.Context, name string, budget uint64, params ...uint64) ([]uint64, error) {
	fn := s.mod.ExportedFunction(name)
	if fn == nil {
		return nil, types.WrapBindingsError(name, "function not exported")
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, classifyCallError(ctx, s.mod, name, budget, err)
	}
	return res, nil
}

// setFuel 重置燃料全局变量
func (s *session) setFuel(fuel uint64) error {
	g, ok := s.mod.ExportedGlobal(metering.FuelExport).(api.MutableGlobal)
	if !ok {
		return types.WrapBindingsError(metering.FuelExport, "fuel global is not mutable")
	}
	if fuel > math.MaxInt64 {
		fuel = math.MaxInt64
	}
	g.Set(fuel)
	return nil
}

// initialize 以独立的初始化预算运行 start 函数与反应器初始化，完成后恢复调用预算
func (s *session) initialize(ctx context.Context, c *compiled, budget uint64) error {
	if !c.hasStart && !c.hasInit {
		return nil
	}
	if err := s.setFuel(budget); err != nil {
		return err
	}
	if c.hasStart {
		if _, err := s.callWithBudget(ctx, metering.StartExport, budget); err != nil {
			return err
		}
	}
	if c.hasInit {
		if _, err := s.callWithBudget(ctx, abi.ExportInitialize, budget); err != nil {
			return err
		}
	}
	if raw, ok := readFuel(s.mod); ok {
		s.initConsumed = metering.Consumed(budget, raw)
		if l := s.ec.Logger(); l != nil {
			l.Debugf("程序初始化完成: 消耗燃料 %d/%d", s.initConsumed, budget)
		}
	}
	return s.setFuel(s.ec.Budget())
}

// stage 写入输入；alloc 的陷入同样按燃料/超时/陷入分类
func (s *session) stage(ctx context.Context, inputs ...[]byte) (*execution.Stager, []execution.Slice, error) {
	stager, err := execution.NewStager(s.mod)
	if err != nil {
		return nil, nil, err
	}
	slices, err := stager.Stage(ctx, inputs...)
	if err != nil {
		return nil, nil, classifyCallError(ctx, s.mod, abi.ExportAlloc, s.ec.Budget(), err)
	}
	return stager, slices, nil
}

// consumed 已消耗燃料（未实例化时为 0）
func (s *session) consumed() uint64 {
	raw, ok := readFuel(s.mod)
	if !ok {
		return 0
	}
	return metering.Consumed(s.ec.Budget(), raw)
}

func (s *session) close(ctx context.Context) {
	// 关闭使用独立上下文：调用方上下文可能已超时
	closeCtx := context.WithoutCancel(ctx)
	if s.mod != nil {
		_ = s.mod.Close(closeCtx)
	}
	if s.compiled != nil {
		_ = s.compiled.module.Close(closeCtx)
	}
}

// run 执行一次完整调用：校验 → 插桩编译 → 实例化 → 初始化 → body
func (e *Engine) run(ctx context.Context, entry string, program []byte, fuel uint64, body func(context.Context, *session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ExecutionTimeout)
		defer cancel()
	}

	s := &session{engine: e, ec: execution.New(entry, fuel, e.logger)}
	err := e.runSession(ctx, s, program, body)

	consumed := s.consumed()
	s.close(ctx)
	s.ec.Finish(err, consumed)
	e.metrics.ObserveExecution(s.ec.Report(), err)

	if err != nil && types.IsSystemic(err) {
		if l := s.ec.Logger(); l != nil {
			l.Warnf("策略程序执行失败: %v", err)
		}
	}
	return err
}

func (e *Engine) runSession(ctx context.Context, s *session, program []byte, body func(context.Context, *session) error) error {
	if err := s.ec.Transition(types.ExecutionStateValidating); err != nil {
		return err
	}
	if len(program) == 0 {
		return types.ErrEmptyBytecode
	}

	c, err := e.compile(ctx, program, s.ec.Budget())
	if err != nil {
		return err
	}
	s.compiled = c

	mod, err := e.runtime.InstantiateModule(ctx, c.module, moduleConfig())
	if err != nil {
		if ctx.Err() != nil {
			return types.WrapTimeoutError("instantiate", err)
		}
		return types.WrapInvalidBytecodeError(len(program), fmt.Errorf("instantiate: %w", err))
	}
	s.mod = mod
	if err := s.ec.Transition(types.ExecutionStateInstantiated); err != nil {
		return err
	}

	if err := s.ec.Transition(types.ExecutionStateRunning); err != nil {
		return err
	}
	// start 函数与反应器初始化受计量，但使用引擎级的初始化预算
	if err := s.initialize(ctx, c, e.config.InitFuel); err != nil {
		return err
	}
	return body(ctx, s)
}
