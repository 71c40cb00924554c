//go:build tinygo

// Command wasm 把 oracle 程序编译为策略模块
//
//	tinygo build -target=wasip1 -buildmode=c-shared -o oracle.wasm ./programs/oracle/wasm
package main

import (
	"github.com/weisyn/policyvm/pkg/program"
	"github.com/weisyn/policyvm/programs/oracle"
)

func init() {
	program.Register(oracle.Program{})
}

func main() {}
