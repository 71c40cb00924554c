// Package app 组装策略运行时应用
//
// 🎯 **核心职责**：
// 读取用户配置，按层次装配 fx 模块，对外提供可直接使用的运行时门面。
package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"

	config "github.com/weisyn/policyvm/internal/config"
	logInterface "github.com/weisyn/policyvm/pkg/interfaces/infrastructure/log"
	pkgruntime "github.com/weisyn/policyvm/pkg/runtime"
	"github.com/weisyn/policyvm/pkg/types"
)

// ConfigPathEnv 配置文件路径环境变量，优先级低于 WithConfigFile
const ConfigPathEnv = "POLICYVM_CONFIG_PATH"

// App 已启动的策略运行时应用
type App struct {
	fxApp *fx.App

	Runtime *pkgruntime.Runtime
	Logger  logInterface.Logger
	Config  *types.AppConfig
}

// New 装配并启动应用
func New(ctx context.Context, appOptions ...Option) (*App, error) {
	opts := newOptions(appOptions...)

	appConfig, err := resolveAppConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &App{Config: appConfig}
	bootstrap := NewBootstrap(opts, appConfig)

	a.fxApp = fx.New(
		fx.Options(bootstrap.SetupModules()...),
		fx.NopLogger,
		fx.Populate(&a.Runtime, &a.Logger),
	)
	if err := a.fxApp.Err(); err != nil {
		return nil, fmt.Errorf("装配应用失败: %w", err)
	}
	if err := a.fxApp.Start(ctx); err != nil {
		return nil, fmt.Errorf("启动应用失败: %w", err)
	}
	return a, nil
}

// Stop 停止应用，关闭共享引擎并刷新日志
func (a *App) Stop(ctx context.Context) error {
	err := a.fxApp.Stop(ctx)
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return err
}

// resolveAppConfig 确定用户配置来源
//
// 优先级：WithAppConfig > WithConfigFile > 环境变量 > 空配置（全部默认值）
func resolveAppConfig(opts *options) (*types.AppConfig, error) {
	if opts.appConfig != nil {
		if err := config.Validate(opts.appConfig); err != nil {
			return nil, err
		}
		return opts.appConfig, nil
	}

	path := opts.configFilePath
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	return config.LoadAppConfig(path)
}
