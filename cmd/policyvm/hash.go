package main

import (
	"encoding/hex"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/policyvm/internal/app"
)

var hashMessage *payloadFlags

// hashCmd 运行 custom_hash
var hashCmd = &cobra.Command{
	Use:   "hash <program.wasm>",
	Short: "计算程序的自定义哈希",
	Long:  "对消息运行程序的 custom_hash 入口，输出 32 字节摘要",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := readProgram(args[0])
		if err != nil {
			return err
		}
		message, err := hashMessage.read(cmd.Flags())
		if err != nil {
			return err
		}

		return withApp(cmd.Context(), func(a *app.App) error {
			digest, err := a.Runtime.CustomHash(cmd.Context(), program, message)
			if err != nil {
				if globalFlags.OutputFormat == "json" {
					printJSON(map[string]string{"error": err.Error()})
				} else {
					pterm.Error.Println("计算哈希失败: " + err.Error())
				}
				return exitFor(err)
			}

			encoded := "0x" + hex.EncodeToString(digest[:])
			if globalFlags.OutputFormat == "json" {
				printJSON(map[string]string{"digest": encoded})
				return nil
			}
			pterm.Println(encoded)
			return nil
		})
	},
}

func init() {
	hashMessage = newPayloadFlags(hashCmd.Flags(), "message", "待哈希的消息")
}
