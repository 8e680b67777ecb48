package gemm

import (
	"fmt"

	"github.com/accelbench/accelbench/internal/accel"
)

// kernelGemm is the entry point expected in the precompiled artifact.
// Arguments: a, b, c, n, rowOffset, rowCount. It computes the rowCount rows
// of c = a * b starting at rowOffset; all matrices are n by n row-major.
const kernelGemm = "gemm_nn"

func init() {
	accel.RegisterEmulatedKernel(kernelGemm, gemmKernel)
}

func gemmKernel(args ...any) error {
	if len(args) != 6 {
		return fmt.Errorf("%s expects 6 arguments, got %d", kernelGemm, len(args))
	}
	bufs := make([]*accel.HostBuffer, 3)
	for i := range bufs {
		b, ok := args[i].(*accel.HostBuffer)
		if !ok {
			return fmt.Errorf("%s expects a device buffer, got %T", kernelGemm, args[i])
		}
		bufs[i] = b
	}
	ints := make([]int, 3)
	for i := range ints {
		v, ok := args[3+i].(int)
		if !ok {
			return fmt.Errorf("%s expects an int, got %T", kernelGemm, args[3+i])
		}
		ints[i] = v
	}
	a, b, c := bufs[0].Data(), bufs[1].Data(), bufs[2].Data()
	n, rowOffset, rowCount := ints[0], ints[1], ints[2]

	if len(a) != n*n || len(b) != n*n || len(c) != n*n {
		return fmt.Errorf("%s buffer size mismatch: expected %d elements", kernelGemm, n*n)
	}
	if rowOffset < 0 || rowCount < 0 || rowOffset+rowCount > n {
		return fmt.Errorf("%s rows [%d,%d) out of bounds for n=%d", kernelGemm, rowOffset, rowOffset+rowCount, n)
	}

	for i := rowOffset; i < rowOffset+rowCount; i++ {
		row := c[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for l := 0; l < n; l++ {
			ail := a[i*n+l]
			brow := b[l*n : (l+1)*n]
			for j, v := range brow {
				row[j] += ail * v
			}
		}
	}
	return nil
}
