package main

import (
	"os"

	"github.com/accelbench/accelbench/internal/benchmarks/stream"
)

func main() {
	os.Exit(stream.Run(os.Args))
}
