// Command policyvm 在本地运行策略程序
//
// 使用方式:
//
//	policyvm eval <program.wasm> --message 0xef01...
//	policyvm hash <program.wasm> --message-hex 736f6d65
//	policyvm inspect <program.wasm>
package main

import "os"

func main() {
	os.Exit(Execute())
}
