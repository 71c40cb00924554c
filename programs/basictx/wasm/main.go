//go:build tinygo

// Command wasm 把 basictx 程序编译为策略模块
//
//	tinygo build -target=wasip1 -buildmode=c-shared -o basictx.wasm ./programs/basictx/wasm
package main

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/programs/basictx"
)

func init() {
	program.Register(basictx.Program{})
}

func main() {}
