//go:build tinygo

// Command wasm 把 auxiliary 程序编译为策略模块
//
//	tinygo build -target=wasip1 -buildmode=c-shared -o auxiliary.wasm ./programs/auxiliary/wasm
package main

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/programs/auxiliary"
)

func init() {
	program.Register(auxiliary.Program{})
}

func main() {}
