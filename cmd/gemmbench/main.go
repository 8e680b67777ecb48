package main

import (
	"os"

	"github.com/accelbench/accelbench/internal/benchmarks/gemm"
)

func main() {
	os.Exit(gemm.Run(os.Args))
}
