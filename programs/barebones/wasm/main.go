//go:build tinygo

// Command wasm 把 barebones 程序编译为策略模块
//
//	tinygo build -target=wasip1 -buildmode=c-shared -o barebones.wasm ./programs/barebones/wasm
package main

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/programs/barebones"
)

func init() {
	program.Register(barebones.Program{})
}

func main() {}
