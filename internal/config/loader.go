package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weisyn/policyvm/pkg/types"
)

// LoadAppConfig 从文件加载用户配置
//
// 按扩展名选择格式：.yaml/.yml 使用 YAML，其余按 JSON 解析。
// path 为空时返回空配置（全部使用默认值）。
func LoadAppConfig(path string) (*types.AppConfig, error) {
	if path == "" {
		return &types.AppConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg, err := ParseAppConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return cfg, nil
}

// ParseAppConfig 解析配置内容
func ParseAppConfig(data []byte, ext string) (*types.AppConfig, error) {
	cfg := &types.AppConfig{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
