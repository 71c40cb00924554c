package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// payloadFlags 同一输入的三种来源：文本、十六进制、文件
//
// 三者都未设置表示"未提供"；同时设置多个时报错。
type payloadFlags struct {
	name string
	text string
	hex  string
	file string
}

func newPayloadFlags(fs *pflag.FlagSet, name, usage string) *payloadFlags {
	p := &payloadFlags{name: name}
	fs.StringVar(&p.text, name, "", usage+"（UTF-8 文本）")
	fs.StringVar(&p.hex, name+"-hex", "", usage+"（十六进制，可带 0x 前缀）")
	fs.StringVar(&p.file, name+"-file", "", usage+"（从文件读取）")
	return p
}

// read 返回输入内容；未提供时返回 nil
func (p *payloadFlags) read(fs *pflag.FlagSet) ([]byte, error) {
	set := 0
	for _, suffix := range []string{"", "-hex", "-file"} {
		if fs.Changed(p.name + suffix) {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, nil
	case set > 1:
		return nil, fmt.Errorf("--%s、--%s-hex、--%s-file 只能指定一个", p.name, p.name, p.name)
	}

	switch {
	case fs.Changed(p.name + "-hex"):
		return decodeHex(p.hex)
	case fs.Changed(p.name + "-file"):
		data, err := os.ReadFile(p.file)
		if err != nil {
			return nil, fmt.Errorf("读取 --%s-file 失败: %w", p.name, err)
		}
		return data, nil
	default:
		return []byte(p.text), nil
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("无效的十六进制输入: %w", err)
	}
	return b, nil
}
