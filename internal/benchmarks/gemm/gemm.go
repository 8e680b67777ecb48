// Package gemm measures dense matrix multiply throughput. Every rank
// multiplies its own n by n matrices, so the aggregate rate scales with the
// process group.
package gemm

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/accelbench/accelbench/internal/accel"
	"github.com/accelbench/accelbench/internal/comm"
	"github.com/accelbench/accelbench/internal/harness"
)

// inputSeed makes the generated matrices reproducible across ranks and runs.
const inputSeed = 42

// residualBudget is the largest acceptable normalized residual, the
// threshold used by linear-algebra benchmarks since LINPACK.
const residualBudget = 16.0

var epsilon = math.Nextafter(1, 2) - 1

// Settings extends the shared options with the matrix extent.
type Settings struct {
	harness.BaseSettings
	MatrixSize uint
}

func (s *Settings) Map() map[string]string {
	m := s.BaseSettings.Map()
	m["Matrix Size"] = strconv.FormatUint(uint64(s.MatrixSize), 10)
	return m
}

// Data bundles the host matrices and their device buffers. Matrices are
// stored row-major.
type Data struct {
	a, b, c          []float64
	bufA, bufB, bufC accel.Buffer
}

type controller = harness.Controller[*Settings, Data]

// Benchmark is the GEMM payload.
type Benchmark struct{}

func New() *Benchmark { return &Benchmark{} }

// Run executes the payload as a complete benchmark binary.
func Run(args []string, opts ...harness.Option) int {
	return harness.Run[*Settings, Data](New(), args, opts...)
}

func (b *Benchmark) Name() string { return "GEMM" }

func (b *Benchmark) Description() string {
	return "Dense matrix-matrix multiplication c = a * b on the selected device."
}

func (b *Benchmark) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{Name: "matrix-size", Aliases: []string{"m"}, Usage: "Size of the quadratic matrices in one dimension", Value: 512},
	}
}

func (b *Benchmark) NewSettings(c *cli.Context) (*Settings, error) {
	base, err := harness.NewBaseSettings(c)
	if err != nil {
		return nil, err
	}
	size := c.Uint("matrix-size")
	if size == 0 {
		return nil, &harness.ConfigError{Option: "matrix-size", Reason: "Matrix size must be greater than zero"}
	}
	return &Settings{BaseSettings: *base, MatrixSize: size}, nil
}

func (b *Benchmark) CheckParameters(bm *controller) error {
	s := bm.Settings()
	if s.MatrixSize%uint(s.KernelReplications) != 0 {
		return fmt.Errorf("matrix size %d is not divisible by %d kernel replications", s.MatrixSize, s.KernelReplications)
	}
	return nil
}

func (b *Benchmark) GenerateInput(bm *controller) (*Data, error) {
	n := int(bm.Settings().MatrixSize)
	rng := rand.New(rand.NewSource(inputSeed))
	data := &Data{
		a: make([]float64, n*n),
		b: make([]float64, n*n),
		c: make([]float64, n*n),
	}
	for i := range data.a {
		data.a[i] = rng.Float64() - 0.5
	}
	for i := range data.b {
		data.b[i] = rng.Float64() - 0.5
	}

	ctx := bm.ExecutionContext().Context
	var err error
	if data.bufA, err = ctx.NewBuffer(n * n); err != nil {
		return nil, err
	}
	if data.bufB, err = ctx.NewBuffer(n * n); err != nil {
		return nil, err
	}
	if data.bufC, err = ctx.NewBuffer(n * n); err != nil {
		return nil, err
	}
	if err := data.bufA.Write(data.a); err != nil {
		return nil, err
	}
	if err := data.bufB.Write(data.b); err != nil {
		return nil, err
	}
	if err := data.bufC.Write(data.c); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *Benchmark) ExecuteKernel(bm *controller, data *Data) error {
	kernel, err := bm.ExecutionContext().Program.Kernel(kernelGemm)
	if err != nil {
		return err
	}

	s := bm.Settings()
	n := int(s.MatrixSize)
	rows := n / int(s.KernelReplications)

	for rep := uint(0); rep < s.Repetitions; rep++ {
		start := time.Now()
		for rowOffset := 0; rowOffset < n; rowOffset += rows {
			if err := kernel.Run(data.bufA, data.bufB, data.bufC, n, rowOffset, rows); err != nil {
				return fmt.Errorf("repetition %d: %w", rep, err)
			}
		}
		bm.AddTimings("execution", []float64{time.Since(start).Seconds()})
	}
	return nil
}

func maxAbs(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// residual computes the normalized residual of c against a reference
// multiplication of a and b.
func residual(a, b, c []float64, n int) float64 {
	var ref mat.Dense
	ref.Mul(mat.NewDense(n, n, a), mat.NewDense(n, n, b))

	maxDiff := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			maxDiff = math.Max(maxDiff, math.Abs(c[i*n+j]-ref.At(i, j)))
		}
	}
	return maxDiff / (float64(n) * maxAbs(a) * maxAbs(b) * epsilon)
}

func (b *Benchmark) ValidateOutput(bm *controller, data *Data) (bool, error) {
	if err := data.bufC.Read(data.c); err != nil {
		return false, err
	}

	n := int(bm.Settings().MatrixSize)
	resid := residual(data.a, data.b, data.c, n)
	bm.SetError("residual", harness.NewResult(resid, "epsilon"))
	return resid < residualBudget, nil
}

func (b *Benchmark) PrintError(bm *controller) {
	if r, ok := bm.Error("residual"); ok {
		fmt.Fprintf(bm.Out(), "%-20s%s\n", "norm. residual:", r)
	}
}

func (b *Benchmark) CollectResults(bm *controller) error {
	reduced, err := bm.Comm().Reduce(bm.Timings("execution"), comm.OpMax)
	if err != nil {
		return fmt.Errorf("reduce execution timings: %w", err)
	}
	if bm.Rank() != 0 {
		return nil
	}

	minTime, sum := reduced[0], 0.0
	for _, t := range reduced {
		minTime = math.Min(minTime, t)
		sum += t
	}

	n := float64(bm.Settings().MatrixSize)
	flops := 2 * n * n * n * float64(bm.WorldSize())

	bm.SetResult("t_min", harness.NewResult(minTime, "s"))
	bm.SetResult("t_mean", harness.NewResult(sum/float64(len(reduced)), "s"))
	bm.SetResult("gflops", harness.NewResult(flops/minTime/1e9, "GFLOP/s"))
	return nil
}

func (b *Benchmark) PrintResults(bm *controller) {
	best, _ := bm.Result("t_min")
	mean, _ := bm.Result("t_mean")
	gflops, _ := bm.Result("gflops")
	fmt.Fprintf(bm.Out(), "%-10s%-20s%-20s%-20s\n", "", "best", "mean", "GFLOPS")
	fmt.Fprintf(bm.Out(), "%-10s%s%s%s\n", "Time", best, mean, gflops)
}
