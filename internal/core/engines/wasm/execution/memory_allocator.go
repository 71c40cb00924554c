package execution

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/weisyn/policyvm/pkg/abi"
)

const pageSize = 65536

// memoryAllocator 简单的 bump allocator
//
// 程序未导出 alloc 时使用：一次性扩容足够的页，
// 在新扩出的区域内从高地址向下分配，不会覆盖程序已有的数据与堆。
type memoryAllocator struct {
	currentTop uint64 // 当前可分配的顶部位置
	floor      uint64 // 新区域起点
}

// alignedSize 对齐到 8 字节边界
func alignedSize(size uint32) uint64 {
	return (uint64(size) + 7) &^ uint64(7)
}

// newMemoryAllocator 扩容 total 字节（按页取整）并创建分配器
//
// 初始内存已达页数上限的程序无法由宿主写入任何非空输入，必须导出 alloc。
func newMemoryAllocator(memory api.Memory, total uint64) (*memoryAllocator, error) {
	pages := (total + pageSize - 1) / pageSize
	if pages > 65536 {
		return nil, fmt.Errorf("需要 %d 页，超过地址空间", pages)
	}
	prev, ok := memory.Grow(uint32(pages))
	if !ok {
		return nil, fmt.Errorf("内存扩容失败: 需要 %d 页, 当前 %d 页; 程序未导出 %s, 宿主只能扩容线性内存写入输入",
			pages, memory.Size()/pageSize, abi.ExportAlloc)
	}
	floor := uint64(prev) * pageSize
	return &memoryAllocator{
		currentTop: floor + pages*pageSize,
		floor:      floor,
	}, nil
}

// allocate 从顶部向下分配
func (alloc *memoryAllocator) allocate(size uint32) (uint32, error) {
	aligned := alignedSize(size)
	if alloc.currentTop-alloc.floor < aligned {
		return 0, fmt.Errorf("分配器空间不足: 需要 %d 字节, 剩余 %d 字节", aligned, alloc.currentTop-alloc.floor)
	}
	alloc.currentTop -= aligned
	return uint32(alloc.currentTop), nil
}
