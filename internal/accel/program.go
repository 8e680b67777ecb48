package accel

import (
	"fmt"
	"os"
)

// BuildProgram reads a precompiled kernel artifact from disk and instantiates
// it on the context. A missing or unreadable artifact aborts the run before
// any kernel is launched.
func BuildProgram(ctx Context, kernelFile string) (Program, error) {
	binary, err := os.ReadFile(kernelFile)
	if err != nil {
		return nil, fmt.Errorf("load kernel file %s: %w", kernelFile, err)
	}
	program, err := ctx.Load(binary)
	if err != nil {
		return nil, fmt.Errorf("build program from %s: %w", kernelFile, err)
	}
	return program, nil
}
