//go:build tinygo

package program

import (
	"unsafe"

	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

// pinned 保持交给宿主的缓冲区可达，实例在单次调用后即被丢弃，无需释放
var pinned [][]byte

func pin(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	pinned = append(pinned, b)
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

// load 按接口约定读取输入：长度 -1 为未提供，0 为空值
func load(ptr, length int32) []byte {
	switch {
	case length == abi.Absent || length < 0:
		return nil
	case length == 0:
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(uint32(ptr)))), int(length))
}

//export alloc
func guestAlloc(size int32) int32 {
	if size <= 0 {
		return 0
	}
	return int32(pin(make([]byte, size)))
}

//export evaluate
func guestEvaluate(msgPtr, msgLen, auxPtr, auxLen, cfgPtr, cfgLen, oraclePtr, oracleLen int32) uint64 {
	req := types.SignatureRequest{
		Message:       load(msgPtr, msgLen),
		AuxiliaryData: load(auxPtr, auxLen),
	}
	perr := RunEvaluate(registered, req, load(cfgPtr, cfgLen), load(oraclePtr, oracleLen))
	return EvaluateResult(perr, pin)
}

//export custom_hash
func guestCustomHash(dataPtr, dataLen int32) uint64 {
	digest, ok := RunCustomHash(registered, load(dataPtr, dataLen))
	return CustomHashResult(digest, ok, pin)
}
