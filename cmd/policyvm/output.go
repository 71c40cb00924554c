package main

import (
	"encoding/json"
	"os"
)

// printJSON 以缩进 JSON 输出到标准输出
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
