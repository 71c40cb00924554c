package runtime

import (
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/weisyn/policyvm/internal/core/engines/wasm/metering"
	"github.com/weisyn/policyvm/pkg/abi"
	"github.com/weisyn/policyvm/pkg/types"
)

// signature 导出函数签名
type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

func (s signature) String() string {
	return fmt.Sprintf("(%s) -> (%s)", valueTypes(s.params), valueTypes(s.results))
}

func valueTypes(ts []api.ValueType) string {
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += ", "
		}
		out += api.ValueTypeName(t)
	}
	return out
}

func repeat(t api.ValueType, n int) []api.ValueType {
	out := make([]api.ValueType, n)
	for i := range out {
		out[i] = t
	}
	return out
}

var (
	evaluateSignature   = signature{params: repeat(api.ValueTypeI32, 8), results: []api.ValueType{api.ValueTypeI64}}
	customHashSignature = signature{params: repeat(api.ValueTypeI32, 2), results: []api.ValueType{api.ValueTypeI64}}
	allocSignature      = signature{params: []api.ValueType{api.ValueTypeI32}, results: []api.ValueType{api.ValueTypeI32}}
	initSignature       = signature{}
)

// requiredExports 必须导出的函数
var requiredExports = []struct {
	name string
	sig  signature
}{
	{abi.ExportEvaluate, evaluateSignature},
	{abi.ExportCustomHash, customHashSignature},
}

// optionalExports 可选导出的函数，存在时签名必须匹配
var optionalExports = []struct {
	name string
	sig  signature
}{
	{abi.ExportAlloc, allocSignature},
	{abi.ExportInitialize, initSignature},
	{metering.StartExport, initSignature},
}

// checkImports 只允许导入（已启用的）WASI 函数
func checkImports(cm wazero.CompiledModule, enableWASI bool) error {
	for _, def := range cm.ImportedFunctions() {
		module, name, _ := def.Import()
		if module != abi.WASIModuleName || !enableWASI {
			return fmt.Errorf("import %s.%s is outside the host interface", module, name)
		}
	}
	for _, def := range cm.ImportedMemories() {
		module, name, _ := def.Import()
		return fmt.Errorf("memory import %s.%s is not allowed", module, name)
	}
	return nil
}

// checkExports 校验导出与调用约定一致
func checkExports(cm wazero.CompiledModule) error {
	if _, ok := cm.ExportedMemories()[abi.ExportMemory]; !ok {
		return types.WrapBindingsError(abi.ExportMemory, "memory not exported")
	}

	functions := cm.ExportedFunctions()
	for _, want := range requiredExports {
		def, ok := functions[want.name]
		if !ok {
			return types.WrapBindingsError(want.name, "function not exported")
		}
		if err := matchSignature(def, want.sig); err != nil {
			return types.WrapBindingsError(want.name, err.Error())
		}
	}
	for _, want := range optionalExports {
		def, ok := functions[want.name]
		if !ok {
			continue
		}
		if err := matchSignature(def, want.sig); err != nil {
			return types.WrapBindingsError(want.name, err.Error())
		}
	}
	return nil
}

func matchSignature(def api.FunctionDefinition, want signature) error {
	got := signature{params: def.ParamTypes(), results: def.ResultTypes()}
	if equalTypes(got.params, want.params) && equalTypes(got.results, want.results) {
		return nil
	}
	return errors.New("signature " + got.String() + ", want " + want.String())
}

func equalTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
