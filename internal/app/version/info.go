// Package version 构建版本信息
package version

import (
	"fmt"
	"runtime"
	"time"
)

// 构建时通过 ldflags 注入：
//
//	go build -ldflags "-X github.com/weisyn/policyvm/internal/app/version.Version=v0.2.0"
var (
	Version   = "v0.1.0"
	BuildTime = "unknown" // RFC3339
	Commit    = "unknown"

	GoVersion = runtime.Version()
	GoArch    = runtime.GOARCH
	GoOS      = runtime.GOOS
)

// BuildInfo 完整构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	GoArch    string `json:"go_arch"`
	GoOS      string `json:"go_os"`
}

// GetBuildInfo 获取完整构建信息
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		Commit:    Commit,
		GoVersion: GoVersion,
		GoArch:    GoArch,
		GoOS:      GoOS,
	}
}

// GetFullVersion 获取多行版本描述
func GetFullVersion() string {
	info := GetBuildInfo()
	s := fmt.Sprintf("policyvm %s", info.Version)

	if info.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
			s += fmt.Sprintf("\n构建时间: %s", t.Format("2006-01-02 15:04:05 MST"))
		} else {
			s += fmt.Sprintf("\n构建时间: %s", info.BuildTime)
		}
	}
	if info.Commit != "unknown" {
		s += fmt.Sprintf("\n提交: %s", info.Commit)
	}
	s += fmt.Sprintf("\nGo版本: %s", info.GoVersion)
	s += fmt.Sprintf("\n平台: %s/%s", info.GoOS, info.GoArch)
	return s
}
