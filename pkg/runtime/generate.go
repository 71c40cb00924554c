package runtime

// 参考策略程序的编译产物，programs_test.go 在默认预算下端到端运行它们（需要 TinyGo 0.34+）
//go:generate tinygo build -target=wasip1 -buildmode=c-shared -o testdata/barebones.wasm ../../programs/barebones/wasm
//go:generate tinygo build -target=wasip1 -buildmode=c-shared -o testdata/customhash.wasm ../../programs/customhash/wasm
//go:generate tinygo build -target=wasip1 -buildmode=c-shared -o testdata/basictx.wasm ../../programs/basictx/wasm
