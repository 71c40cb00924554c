package runtime

import (
	"context"
	"fmt"

	"github.com/weisyn/policyvm/internal/core/engines/wasm/execution"
	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

// Evaluate 调用程序的 evaluate 入口
//
// 返回 nil 表示程序放行；程序拒绝时返回包装了 *types.ProgramError 的 types.ErrProgram；
// 其余错误均为系统性错误。
func (e *Engine) Evaluate(ctx context.Context, program []byte, input types.EvaluateInput, fuel uint64) error {
	return e.run(ctx, abi.ExportEvaluate, program, fuel, func(ctx context.Context, s *session) error {
		message := input.Request.Message
		if message == nil {
			message = []byte{}
		}
		stager, slices, err := s.stage(ctx,
			message,
			input.Request.AuxiliaryData,
			input.Config,
			abi.EncodeOracleData(input.OracleData),
		)
		if err != nil {
			return err
		}

		res, err := s.call(ctx, abi.ExportEvaluate, execution.Params(slices...)...)
		if err != nil {
			return err
		}
		if res[0] == abi.Ok {
			return nil
		}

		record, err := execution.ReadPacked(stager.Memory(), abi.ExportEvaluate, res[0])
		if err != nil {
			return err
		}
		perr, err := abi.DecodeErrorRecord(record)
		if err != nil {
			return types.WrapBindingsError(abi.ExportEvaluate, err.Error())
		}
		return types.WrapProgramError(perr)
	})
}

// CustomHash 调用程序的 custom_hash 入口
//
// 程序返回 None 或长度不是 32 的摘要时返回 InvalidSignatureRequest 程序错误。
func (e *Engine) CustomHash(ctx context.Context, program []byte, data []byte, fuel uint64) ([abi.HashLength]byte, error) {
	var digest [abi.HashLength]byte
	err := e.run(ctx, abi.ExportCustomHash, program, fuel, func(ctx context.Context, s *session) error {
		if data == nil {
			data = []byte{}
		}
		stager, slices, err := s.stage(ctx, data)
		if err != nil {
			return err
		}

		res, err := s.call(ctx, abi.ExportCustomHash, execution.Params(slices...)...)
		if err != nil {
			return err
		}
		if res[0] == abi.None {
			return types.WrapProgramError(types.NewInvalidSignatureRequest(MsgCustomHashNone))
		}

		out, err := execution.ReadPacked(stager.Memory(), abi.ExportCustomHash, res[0])
		if err != nil {
			return err
		}
		if len(out) != abi.HashLength {
			return types.WrapProgramError(types.NewInvalidSignatureRequest(fmt.Sprintf(MsgCustomHashLength, len(out))))
		}
		copy(digest[:], out)
		return nil
	})
	if err != nil {
		return [abi.HashLength]byte{}, err
	}
	return digest, nil
}
