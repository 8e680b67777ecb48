// Package harness drives hardware-accelerated micro-benchmarks through a
// fixed lifecycle: parse configuration, acquire a device and a precompiled
// kernel program, generate input, execute, validate, collect and report.
// The lifecycle is coordinated across the process group of a distributed run;
// rank 0 prints and persists.
package harness

import "fmt"

const (
	valueSpace = 11
	unitSpace  = 8
)

// hline separates report sections.
const hline = "-------------------------------------------------------------\n"

// Result is a single measured quantity with its unit. Payloads store results
// and error metrics on the controller; units are never empty for reported
// values.
type Result struct {
	Value float64
	Unit  string
}

func NewResult(value float64, unit string) Result {
	return Result{Value: value, Unit: unit}
}

// String renders the value right-aligned and the unit left-aligned, the cell
// layout of benchmark report tables.
func (r Result) String() string {
	return fmt.Sprintf("%*g %-*s", valueSpace, r.Value, unitSpace, r.Unit)
}
