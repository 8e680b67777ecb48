// Package stream measures the sustainable memory bandwidth of a device with
// the four classic vector kernels Copy, Scale, Add and Triad. Arrays live in
// device buffers and every kernel runs once per replicated chunk, so a
// multi-replica artifact streams the arrays in parallel sections.
package stream

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/accelbench/accelbench/internal/accel"
	"github.com/accelbench/accelbench/internal/comm"
	"github.com/accelbench/accelbench/internal/harness"
)

const (
	initialA = 1.0
	initialB = 2.0
	initialC = 0.0
	// scalar multiplier of the Scale and Triad kernels
	scalar = 3.0

	// average validation error tolerated per array, in units of the float64
	// machine epsilon
	errorBudget = 20.0
)

// epsilon is the float64 machine epsilon.
var epsilon = math.Nextafter(1, 2) - 1

type operation struct {
	label string
	// transfers is the number of array reads plus writes the kernel performs
	// per element.
	transfers int
	kernel    string
}

var operations = []operation{
	{"Copy", 2, kernelCopy},
	{"Scale", 2, kernelScale},
	{"Add", 3, kernelAdd},
	{"Triad", 3, kernelTriad},
}

// Settings extends the shared options with the array length.
type Settings struct {
	harness.BaseSettings
	ArraySize uint
}

func (s *Settings) Map() map[string]string {
	m := s.BaseSettings.Map()
	m["Array Size"] = strconv.FormatUint(uint64(s.ArraySize), 10)
	m["Data Type"] = "float64"
	return m
}

// Data bundles the host arrays and their device buffers through the
// lifecycle phases.
type Data struct {
	a, b, c          []float64
	bufA, bufB, bufC accel.Buffer
}

type controller = harness.Controller[*Settings, Data]

// Benchmark is the STREAM payload.
type Benchmark struct{}

func New() *Benchmark { return &Benchmark{} }

// Run executes the payload as a complete benchmark binary.
func Run(args []string, opts ...harness.Option) int {
	return harness.Run[*Settings, Data](New(), args, opts...)
}

func (b *Benchmark) Name() string { return "STREAM" }

func (b *Benchmark) Description() string {
	return "Implementation of the STREAM benchmark proposed in the HPC Challenge."
}

func (b *Benchmark) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{Name: "array-size", Aliases: []string{"s"}, Usage: "Number of float64 elements per array", Value: 1 << 20},
	}
}

func (b *Benchmark) NewSettings(c *cli.Context) (*Settings, error) {
	base, err := harness.NewBaseSettings(c)
	if err != nil {
		return nil, err
	}
	size := c.Uint("array-size")
	if size == 0 {
		return nil, &harness.ConfigError{Option: "array-size", Reason: "Array size must be greater than zero"}
	}
	return &Settings{BaseSettings: *base, ArraySize: size}, nil
}

func (b *Benchmark) CheckParameters(bm *controller) error {
	s := bm.Settings()
	if s.ArraySize%uint(s.KernelReplications) != 0 {
		return fmt.Errorf("array size %d is not divisible by %d kernel replications", s.ArraySize, s.KernelReplications)
	}
	return nil
}

func (b *Benchmark) GenerateInput(bm *controller) (*Data, error) {
	size := int(bm.Settings().ArraySize)
	data := &Data{
		a: make([]float64, size),
		b: make([]float64, size),
		c: make([]float64, size),
	}
	for i := 0; i < size; i++ {
		data.a[i] = initialA
		data.b[i] = initialB
		data.c[i] = initialC
	}

	ctx := bm.ExecutionContext().Context
	var err error
	if data.bufA, err = ctx.NewBuffer(size); err != nil {
		return nil, err
	}
	if data.bufB, err = ctx.NewBuffer(size); err != nil {
		return nil, err
	}
	if data.bufC, err = ctx.NewBuffer(size); err != nil {
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
	program := bm.ExecutionContext().Program
	kernels := make(map[string]accel.Kernel, len(operations))
	for _, op := range operations {
		kernel, err := program.Kernel(op.kernel)
		if err != nil {
			return err
		}
		kernels[op.label] = kernel
	}

	s := bm.Settings()
	size := int(s.ArraySize)
	chunk := size / int(s.KernelReplications)

	launch := func(op operation, offset, count int) error {
		kernel := kernels[op.label]
		switch op.label {
		case "Copy":
			return kernel.Run(data.bufA, data.bufC, offset, count)
		case "Scale":
			return kernel.Run(data.bufC, data.bufB, scalar, offset, count)
		case "Add":
			return kernel.Run(data.bufA, data.bufB, data.bufC, offset, count)
		default:
			return kernel.Run(data.bufB, data.bufC, data.bufA, scalar, offset, count)
		}
	}

	for rep := uint(0); rep < s.Repetitions; rep++ {
		for _, op := range operations {
			start := time.Now()
			for offset := 0; offset < size; offset += chunk {
				if err := launch(op, offset, chunk); err != nil {
					return fmt.Errorf("%s repetition %d: %w", op.label, rep, err)
				}
			}
			bm.AddTimings(op.label, []float64{time.Since(start).Seconds()})
		}
	}
	return nil
}

// expectedValues replays the kernel sequence on scalar stand-ins for the
// arrays.
func expectedValues(repetitions uint) (aj, bj, cj float64) {
	aj, bj, cj = initialA, initialB, initialC
	for rep := uint(0); rep < repetitions; rep++ {
		cj = aj
		bj = scalar * cj
		cj = aj + bj
		aj = bj + scalar*cj
	}
	return aj, bj, cj
}

// epsilonError is the average absolute deviation from the expected value, in
// units of the float64 machine epsilon.
func epsilonError(values []float64, expected float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += math.Abs(v - expected)
	}
	avg := sum / float64(len(values))
	return avg / (math.Abs(expected) * epsilon)
}

func (b *Benchmark) ValidateOutput(bm *controller, data *Data) (bool, error) {
	if err := data.bufA.Read(data.a); err != nil {
		return false, err
	}
	if err := data.bufB.Read(data.b); err != nil {
		return false, err
	}
	if err := data.bufC.Read(data.c); err != nil {
		return false, err
	}

	aj, bj, cj := expectedValues(bm.Settings().Repetitions)
	errA := epsilonError(data.a, aj)
	errB := epsilonError(data.b, bj)
	errC := epsilonError(data.c, cj)
	bm.SetError("a", harness.NewResult(errA, "epsilon"))
	bm.SetError("b", harness.NewResult(errB, "epsilon"))
	bm.SetError("c", harness.NewResult(errC, "epsilon"))

	return errA < errorBudget && errB < errorBudget && errC < errorBudget, nil
}

func (b *Benchmark) PrintError(bm *controller) {
	for _, name := range []string{"a", "b", "c"} {
		if r, ok := bm.Error(name); ok {
			fmt.Fprintf(bm.Out(), "Average error %s[]: %s\n", name, r)
		}
	}
}

func (b *Benchmark) CollectResults(bm *controller) error {
	s := bm.Settings()
	for _, op := range operations {
		// the slowest rank bounds every repetition
		reduced, err := bm.Comm().Reduce(bm.Timings(op.label), comm.OpMax)
		if err != nil {
			return fmt.Errorf("reduce %s timings: %w", op.label, err)
		}
		if bm.Rank() != 0 {
			continue
		}

		minTime, maxTime, sum := reduced[0], reduced[0], 0.0
		for _, t := range reduced {
			minTime = math.Min(minTime, t)
			maxTime = math.Max(maxTime, t)
			sum += t
		}
		moved := float64(op.transfers) * 8 * float64(s.ArraySize) * float64(bm.WorldSize())

		bm.SetResult(op.label+"_best_rate", harness.NewResult(moved/minTime/1e9, "GB/s"))
		bm.SetResult(op.label+"_avg_time", harness.NewResult(sum/float64(len(reduced)), "s"))
		bm.SetResult(op.label+"_min_time", harness.NewResult(minTime, "s"))
		bm.SetResult(op.label+"_max_time", harness.NewResult(maxTime, "s"))
	}
	return nil
}

func (b *Benchmark) PrintResults(bm *controller) {
	fmt.Fprintf(bm.Out(), "%-10s%-20s%-20s%-20s%-20s\n", "Function", "Best Rate", "Avg time", "Min time", "Max time")
	for _, op := range operations {
		rate, _ := bm.Result(op.label + "_best_rate")
		avgTime, _ := bm.Result(op.label + "_avg_time")
		minTime, _ := bm.Result(op.label + "_min_time")
		maxTime, _ := bm.Result(op.label + "_max_time")
		fmt.Fprintf(bm.Out(), "%-10s%s%s%s%s\n", op.label, rate, avgTime, minTime, maxTime)
	}
}
