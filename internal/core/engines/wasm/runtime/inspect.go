package runtime

import (
	"context"
	"sort"

	"github.com/weisyn/policyvm/internal/core/engines/wasm/metering"
	"github.com/weisyn/policyvm/pkg/types"
)

// ModuleInfo 程序静态检查结果
type ModuleInfo struct {
	Size             int      `json:"size"`
	InstrumentedSize int      `json:"instrumented_size"`
	Functions        int      `json:"functions"`
	MeterPoints      int      `json:"meter_points"`
	BulkOps          int      `json:"bulk_ops"`
	HasStart         bool     `json:"has_start"`
	Imports          []string `json:"imports"`
	Exports          []string `json:"exports"`
	// Bindings 为空表示导出与调用约定一致
	Bindings string `json:"bindings,omitempty"`
}

// Inspect 校验、插桩并编译程序，不实例化
//
// 字节码无效时返回错误；导出不符合调用约定时记录在 ModuleInfo.Bindings 中。
func (e *Engine) Inspect(ctx context.Context, program []byte) (*ModuleInfo, error) {
	if len(program) == 0 {
		return nil, types.ErrEmptyBytecode
	}
	res, err := metering.Instrument(program, 1)
	if err != nil {
		return nil, types.WrapInvalidBytecodeError(len(program), err)
	}
	cm, err := e.runtime.CompileModule(ctx, res.Bytecode)
	if err != nil {
		return nil, types.WrapInvalidBytecodeError(len(program), err)
	}
	defer cm.Close(ctx)

	info := &ModuleInfo{
		Size:             len(program),
		InstrumentedSize: len(res.Bytecode),
		Functions:        res.Functions,
		MeterPoints:      res.MeterPoints,
		BulkOps:          res.BulkOps,
		HasStart:         res.StartFunction != "",
	}
	for _, def := range cm.ImportedFunctions() {
		module, name, _ := def.Import()
		info.Imports = append(info.Imports, module+"."+name)
	}
	for name := range cm.ExportedFunctions() {
		if name == metering.StartExport {
			continue
		}
		info.Exports = append(info.Exports, name)
	}
	for name := range cm.ExportedMemories() {
		info.Exports = append(info.Exports, name)
	}
	sort.Strings(info.Exports)

	if err := checkImports(cm, e.config.EnableWASI); err != nil {
		return nil, types.WrapInvalidBytecodeError(len(program), err)
	}
	if err := checkExports(cm); err != nil {
		info.Bindings = err.Error()
	}
	return info, nil
}
