// Package execution 单次策略调用的执行上下文
//
// 🎯 **核心职责**
//
// 每次 evaluate / custom_hash 调用创建一个 Context：
//   - 分配 execution_id（UUID），供日志与指标关联；
//   - 维护生命周期状态机 Idle → Validating → Instantiated → Running → 终态；
//   - 记录燃料预算、消耗与耗时，生成 types.ExecutionReport。
//
// Context 只在调用方 goroutine 上使用，不跨调用复用，也不做并发保护。
package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weisyn/policyvm/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/policyvm/pkg/types"
)

// ErrInvalidTransition 非法状态迁移
var ErrInvalidTransition = errors.New("invalid execution state transition")

// transitions 合法的非终态迁移
var transitions = map[types.ExecutionState][]types.ExecutionState{
	types.ExecutionStateIdle:         {types.ExecutionStateValidating},
	types.ExecutionStateValidating:   {types.ExecutionStateInstantiated, types.ExecutionStateFailed},
	types.ExecutionStateInstantiated: {types.ExecutionStateRunning, types.ExecutionStateFailed, types.ExecutionStateAborted},
	types.ExecutionStateRunning:      {types.ExecutionStateCompleted, types.ExecutionStateFailed, types.ExecutionStateAborted},
}

// IsTerminal 是否为终态
func IsTerminal(s types.ExecutionState) bool {
	switch s {
	case types.ExecutionStateCompleted, types.ExecutionStateFailed, types.ExecutionStateAborted:
		return true
	}
	return false
}

// Context 单次调用的执行上下文
type Context struct {
	id       string
	entry    string
	budget   uint64
	consumed uint64
	state    types.ExecutionState
	started  time.Time
	finished time.Time
	logger   log.Logger
}

// New 创建执行上下文
//
// logger 可以为 nil；非 nil 时派生出带 module / execution_id / entry 字段的子日志器。
func New(entry string, budget uint64, logger log.Logger) *Context {
	c := &Context{
		id:      uuid.NewString(),
		entry:   entry,
		budget:  budget,
		state:   types.ExecutionStateIdle,
		started: time.Now(),
	}
	if logger != nil {
		c.logger = logger.With("module", "policy", "execution_id", c.id, "entry", entry)
	}
	return c
}

func (c *Context) ID() string                  { return c.id }
func (c *Context) Entry() string               { return c.entry }
func (c *Context) Budget() uint64              { return c.budget }
func (c *Context) State() types.ExecutionState { return c.state }
func (c *Context) Logger() log.Logger          { return c.logger }

// Transition 迁移到下一个状态
func (c *Context) Transition(to types.ExecutionState) error {
	for _, next := range transitions[c.state] {
		if next == to {
			c.debugf("状态迁移: %s → %s", c.state, to)
			c.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, c.state, to)
}

// Finish 根据调用结果进入终态
//
// 程序返回的错误（策略拒绝）属于正常完成；燃料耗尽与超时为中止；其余为失败。
// 已处于终态时不做任何修改。
func (c *Context) Finish(err error, consumed uint64) types.ExecutionState {
	if IsTerminal(c.state) {
		return c.state
	}
	c.consumed = consumed
	c.finished = time.Now()

	switch {
	case err == nil, types.IsPolicyRejection(err):
		c.state = types.ExecutionStateCompleted
	case errors.Is(err, types.ErrOutOfFuel), errors.Is(err, types.ErrTimeout):
		c.state = types.ExecutionStateAborted
	default:
		c.state = types.ExecutionStateFailed
	}

	if c.logger != nil {
		if err != nil {
			c.logger.Debugf("执行结束: state=%s, fuel=%d/%d, err=%v", c.state, consumed, c.budget, err)
		} else {
			c.logger.Debugf("执行结束: state=%s, fuel=%d/%d", c.state, consumed, c.budget)
		}
	}
	return c.state
}

// Report 生成执行报告
func (c *Context) Report() types.ExecutionReport {
	end := c.finished
	if end.IsZero() {
		end = time.Now()
	}
	return types.ExecutionReport{
		ExecutionID:  c.id,
		EntryPoint:   c.entry,
		State:        c.state,
		FuelBudget:   c.budget,
		FuelConsumed: c.consumed,
		Duration:     end.Sub(c.started).Nanoseconds(),
	}
}

func (c *Context) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
