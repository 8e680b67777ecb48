package fixtures

import (
	_ "embed"
)

//go:embed schema/runrecord.schema.json
var RunRecordSchema string

//go:embed kernels/stream_kernels_pcie.aocx
var StreamKernelImage []byte

//go:embed kernels/gemm_base.aocx
var GemmKernelImage []byte
