package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/policyvm/internal/app"
	pkgruntime "github.com/weisyn/policyvm/pkg/runtime"
)

// inspectCmd 静态检查程序
var inspectCmd = &cobra.Command{
	Use:   "inspect <program.wasm>",
	Short: "检查程序的导入导出与插桩结果",
	Long: `校验并插桩程序，列出导入、导出与计量点，不执行任何代码

导出不符合调用约定时在 "bindings" 中给出原因。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := readProgram(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd.Context(), func(a *app.App) error {
			info, err := a.Runtime.Inspect(cmd.Context(), program)
			if err != nil {
				if globalFlags.OutputFormat == "json" {
					printJSON(map[string]string{"error": err.Error()})
				} else {
					pterm.Error.Println("检查失败: " + err.Error())
				}
				return exitFor(err)
			}
			if globalFlags.OutputFormat == "json" {
				printJSON(info)
				return nil
			}
			renderModuleInfo(args[0], info)
			return nil
		})
	},
}

func renderModuleInfo(path string, info *pkgruntime.ModuleInfo) {
	pterm.DefaultSection.Println(path)

	bindings := pterm.Green("ok")
	if info.Bindings != "" {
		bindings = pterm.Red(info.Bindings)
	}
	data := pterm.TableData{
		{"字段", "值"},
		{"字节码大小", fmt.Sprintf("%d bytes", info.Size)},
		{"插桩后大小", fmt.Sprintf("%d bytes", info.InstrumentedSize)},
		{"函数数量", fmt.Sprintf("%d", info.Functions)},
		{"计量点", fmt.Sprintf("%d", info.MeterPoints)},
		{"批量内存指令", fmt.Sprintf("%d", info.BulkOps)},
		{"start 函数", fmt.Sprintf("%t", info.HasStart)},
		{"导入", joinOrNone(info.Imports)},
		{"导出", joinOrNone(info.Exports)},
		{"调用约定", bindings},
	}
	_ = pterm.DefaultTable.WithHasHeader(true).WithBoxed(true).WithData(data).Render()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return pterm.Gray("-")
	}
	return strings.Join(items, "\n")
}
