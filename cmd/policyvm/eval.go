package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/policyvm/internal/app"
	"github.com/weisyn/policyvm/pkg/types"
)

var (
	evalMessage *payloadFlags
	evalAux     *payloadFlags
	evalConfig  *payloadFlags
	evalOracle  []string
)

// evalCmd 运行 evaluate
var evalCmd = &cobra.Command{
	Use:   "eval <program.wasm>",
	Short: "评估签名请求",
	Long: `对签名请求运行程序的 evaluate 入口

消息缺省为空；辅助数据、配置、预言机数据缺省为"未提供"。
--oracle-hex 可重复指定，顺序即传入程序的顺序。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := readProgram(args[0])
		if err != nil {
			return err
		}

		fs := cmd.Flags()
		message, err := evalMessage.read(fs)
		if err != nil {
			return err
		}
		aux, err := evalAux.read(fs)
		if err != nil {
			return err
		}
		config, err := evalConfig.read(fs)
		if err != nil {
			return err
		}
		var oracle [][]byte
		if fs.Changed("oracle-hex") {
			oracle = make([][]byte, 0, len(evalOracle))
			for _, item := range evalOracle {
				b, err := decodeHex(item)
				if err != nil {
					return err
				}
				oracle = append(oracle, b)
			}
		}

		req := types.SignatureRequest{Message: message, AuxiliaryData: aux}
		return withApp(cmd.Context(), func(a *app.App) error {
			err := a.Runtime.Evaluate(cmd.Context(), program, req, config, oracle)
			printEvaluation(a.Runtime.Fuel(), err)
			return exitFor(err)
		})
	},
}

// evaluationResult JSON 输出
type evaluationResult struct {
	Allowed  bool   `json:"allowed"`
	Fuel     uint64 `json:"fuel_budget"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message,omitempty"`
	Systemic bool   `json:"systemic,omitempty"`
	Error    string `json:"error,omitempty"`
}

func printEvaluation(fuel uint64, err error) {
	res := evaluationResult{Allowed: err == nil, Fuel: fuel}
	if perr, ok := types.AsProgramError(err); ok {
		res.Kind = perr.Kind.String()
		res.Message = perr.Message
	} else if err != nil {
		res.Systemic = true
		res.Error = err.Error()
	}

	if globalFlags.OutputFormat == "json" {
		printJSON(res)
		return
	}

	switch {
	case res.Allowed:
		pterm.Success.Println("程序允许签名")
	case res.Systemic:
		pterm.Error.Println("执行失败: " + res.Error)
	default:
		pterm.Warning.Println(fmt.Sprintf("程序拒绝签名: %s(%q)", res.Kind, res.Message))
	}
	pterm.Println(pterm.Gray(fmt.Sprintf("燃料预算: %d", fuel)))
}

func init() {
	fs := evalCmd.Flags()
	evalMessage = newPayloadFlags(fs, "message", "待签名消息")
	evalAux = newPayloadFlags(fs, "aux", "辅助数据")
	evalConfig = newPayloadFlags(fs, "program-config", "程序配置")
	fs.StringArrayVar(&evalOracle, "oracle-hex", nil, "预言机数据项（十六进制，可重复）")

}
