package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/policyvm/internal/app"
	config "github.com/weisyn/policyvm/internal/config"
	"github.com/weisyn/policyvm/pkg/types"
)

// 退出码
const (
	exitOK       = 0
	exitSystemic = 1 // 宿主/资源类错误、参数错误
	exitRejected = 2 // 程序拒绝
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigFile   string // 配置文件（.json / .yaml）
	OutputFormat string // 输出格式: pretty | json
	Fuel         uint64 // 覆盖燃料预算，0 表示使用配置
	InitFuel     uint64 // 覆盖初始化燃料预算
	Timeout      string // 覆盖墙钟超时
	Verbose      bool   // 输出调试日志
}

var globalFlags GlobalFlags

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "policyvm",
	Short: "签名策略程序运行时",
	Long: `policyvm - 在沙箱中运行签名策略程序

策略程序是导出 evaluate / custom_hash 的 WebAssembly 模块。
每次调用都会重新校验、实例化模块，并在燃料预算内执行。

退出码:
  0  程序允许签名
  1  宿主错误（字节码无效、燃料耗尽、超时等）
  2  程序拒绝签名`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch globalFlags.OutputFormat {
		case "pretty", "json":
		default:
			return fmt.Errorf("未知输出格式 %q，可选 pretty | json", globalFlags.OutputFormat)
		}
		// 输出被重定向或要求 JSON 时去掉颜色与前缀样式
		if globalFlags.OutputFormat == "json" || !term.IsTerminal(int(os.Stdout.Fd())) {
			pterm.DisableStyling()
		}
		return nil
	},
}

// Execute 执行根命令并返回退出码
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	return exitSystemic
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "配置文件路径 (默认读取 $"+app.ConfigPathEnv+")")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.OutputFormat, "output", "o", "pretty", "输出格式: pretty|json")
	rootCmd.PersistentFlags().Uint64Var(&globalFlags.Fuel, "fuel", 0, "燃料预算 (默认使用配置，配置缺省为 10000)")
	rootCmd.PersistentFlags().Uint64Var(&globalFlags.InitFuel, "init-fuel", 0, "start/_initialize 燃料预算 (配置缺省为 50000000)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Timeout, "timeout", "", "墙钟超时，如 2s")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError 已经输出过的结果，只携带退出码
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// exitFor 把执行结果映射为退出码
func exitFor(err error) error {
	if err == nil {
		return nil
	}
	if types.IsPolicyRejection(err) {
		return &exitError{code: exitRejected, err: err}
	}
	return &exitError{code: exitSystemic, err: err}
}

// loadConfig 读取配置文件并叠加命令行覆盖项
func loadConfig() (*types.AppConfig, error) {
	path := globalFlags.ConfigFile
	if path == "" {
		path = os.Getenv(app.ConfigPathEnv)
	}
	cfg, err := config.LoadAppConfig(path)
	if err != nil {
		return nil, err
	}

	if globalFlags.Fuel > 0 || globalFlags.InitFuel > 0 || globalFlags.Timeout != "" {
		if cfg.Runtime == nil {
			cfg.Runtime = &types.UserRuntimeConfig{}
		}
		if globalFlags.Fuel > 0 {
			cfg.Runtime.FuelLimit = types.Uint64Ptr(globalFlags.Fuel)
		}
		if globalFlags.InitFuel > 0 {
			cfg.Runtime.InitFuelLimit = types.Uint64Ptr(globalFlags.InitFuel)
		}
		if globalFlags.Timeout != "" {
			cfg.Runtime.ExecutionTimeout = types.StringPtr(globalFlags.Timeout)
		}
	}

	if cfg.Log == nil {
		cfg.Log = &types.UserLogConfig{}
	}
	if globalFlags.Verbose {
		cfg.Log.Level = types.StringPtr("debug")
	} else if cfg.Log.Level == nil {
		cfg.Log.Level = types.StringPtr("warn")
	}
	return cfg, nil
}

// withApp 启动应用，执行 fn 后关闭
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, app.WithAppConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Stop(context.Background())
	}()
	return fn(a)
}

// readProgram 读取策略程序字节码
func readProgram(path string) ([]byte, error) {
	program, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取程序失败: %w", err)
	}
	return program, nil
}
