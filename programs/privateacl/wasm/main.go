//go:build tinygo

// Command wasm 把 privateacl 程序编译为策略模块
//
//	tinygo build -target=wasip1 -buildmode=c-shared -o privateacl.wasm ./programs/privateacl/wasm
package main

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/programs/privateacl"
)

func init() {
	program.Register(privateacl.Program{})
}

func main() {}
