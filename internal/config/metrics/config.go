// Package metrics 指标配置
package metrics

import "github.com/weisyn/policyvm/pkg/types"

const (
	defaultEnabled   = true
	defaultNamespace = "policyvm"
)

// MetricsOptions 指标配置选项
type MetricsOptions struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

// New 创建指标配置选项
func New(userConfig *types.UserMetricsConfig) *MetricsOptions {
	options := &MetricsOptions{
		Enabled:   defaultEnabled,
		Namespace: defaultNamespace,
	}
	if userConfig == nil {
		return options
	}
	if userConfig.Enabled != nil {
		options.Enabled = *userConfig.Enabled
	}
	if userConfig.Namespace != nil && *userConfig.Namespace != "" {
		options.Namespace = *userConfig.Namespace
	}
	return options
}
