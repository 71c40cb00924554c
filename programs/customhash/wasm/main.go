//go:build tinygo

// Command wasm 把 customhash 程序编译为策略模块
//
//	tinygo build -target=wasip1 -buildmode=c-shared -o customhash.wasm ./programs/customhash/wasm
package main

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/programs/customhash"
)

func init() {
	program.Register(customhash.Program{})
}

func main() {}
