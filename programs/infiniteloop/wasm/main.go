//go:build tinygo

// Command wasm 把 infiniteloop 程序编译为策略模块
//
//	tinygo build -target=wasip1 -buildmode=c-shared -o infiniteloop.wasm ./programs/infiniteloop/wasm
package main

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/programs/infiniteloop"
)

func init() {
	program.Register(infiniteloop.Program{})
}

func main() {}
