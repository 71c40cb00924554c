package execution

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

// Slice 线性内存中的一段输入
//
// Len == abi.Absent 表示输入未提供，此时 Ptr 为 0。
type Slice struct {
	Ptr uint32
	Len int32
}

// Absent 未提供的输入
var Absent = Slice{Ptr: 0, Len: abi.Absent}

// Params 转换为入口函数参数（ptr, len 依次排列）
func Params(slices ...Slice) []uint64 {
	out := make([]uint64, 0, len(slices)*2)
	for _, s := range slices {
		out = append(out, api.EncodeU32(s.Ptr), api.EncodeI32(s.Len))
	}
	return out
}

// Stager 将宿主输入写入程序线性内存
type Stager struct {
	memory api.Memory
	alloc  api.Function
}

// NewStager 创建输入写入器；程序导出 alloc 时优先使用程序自己的分配器
func NewStager(mod api.Module) (*Stager, error) {
	memory := mod.ExportedMemory(abi.ExportMemory)
	if memory == nil {
		return nil, types.WrapBindingsError(abi.ExportMemory, "memory not exported")
	}
	return &Stager{memory: memory, alloc: mod.ExportedFunction(abi.ExportAlloc)}, nil
}

// Memory 程序线性内存
func (s *Stager) Memory() api.Memory { return s.memory }

// Stage 写入输入，nil 输入映射为 Absent，空输入映射为 {0, 0}
//
// 调用程序 alloc 时产生的陷入原样返回，由调用方区分燃料耗尽与普通陷入。
func (s *Stager) Stage(ctx context.Context, inputs ...[]byte) ([]Slice, error) {
	out := make([]Slice, len(inputs))
	var total uint64
	for i, in := range inputs {
		switch {
		case in == nil:
			out[i] = Absent
		case len(in) > math.MaxInt32:
			return nil, types.WrapResourceExhaustedError("input", fmt.Errorf("input %d is %d bytes", i, len(in)))
		default:
			out[i] = Slice{Len: int32(len(in))}
			total += alignedSize(uint32(len(in)))
		}
	}
	if total == 0 {
		return out, nil
	}

	allocate, err := s.allocator(ctx, total)
	if err != nil {
		return nil, err
	}
	for i, in := range inputs {
		if len(in) == 0 {
			continue
		}
		ptr, err := allocate(uint32(len(in)))
		if err != nil {
			return nil, err
		}
		if !s.memory.Write(ptr, in) {
			return nil, types.WrapBindingsError(abi.ExportAlloc, fmt.Sprintf("pointer %d out of bounds for %d bytes", ptr, len(in)))
		}
		out[i].Ptr = ptr
	}
	return out, nil
}

func (s *Stager) allocator(ctx context.Context, total uint64) (func(uint32) (uint32, error), error) {
	if s.alloc != nil {
		return func(size uint32) (uint32, error) {
			res, err := s.alloc.Call(ctx, api.EncodeU32(size))
			if err != nil {
				return 0, err
			}
			ptr := api.DecodeU32(res[0])
			if ptr == 0 {
				return 0, types.WrapResourceExhaustedError("guest alloc", errors.New("alloc returned null"))
			}
			return ptr, nil
		}, nil
	}

	host, err := newMemoryAllocator(s.memory, total)
	if err != nil {
		return nil, types.WrapResourceExhaustedError("memory", err)
	}
	return host.allocate, nil
}

// ReadPacked 读取 ptr<<32|len 指向的程序输出，越界时返回绑定错误
func ReadPacked(memory api.Memory, export string, packed uint64) ([]byte, error) {
	ptr, length := abi.Unpack(packed)
	b, ok := memory.Read(ptr, length)
	if !ok {
		return nil, types.WrapBindingsError(export, fmt.Sprintf("result [%d, +%d) out of bounds", ptr, length))
	}
	return append([]byte(nil), b...), nil
}
