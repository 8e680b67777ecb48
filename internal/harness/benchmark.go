package harness

import (
	"github.com/urfave/cli/v2"
)

// Benchmark is the capability set a benchmark payload implements. S is its
// settings type, D the data bundle handed through the lifecycle phases.
// Hooks receive the controller to reach settings, the execution context,
// timings, results and the process group.
//
// GenerateInput, ExecuteKernel, ValidateOutput and CollectResults run on
// every rank; CheckParameters, PrintError and PrintResults only on the root.
type Benchmark[S Settings, D any] interface {
	// Name identifies the benchmark in banners, metrics and run records.
	Name() string
	// Description is the one-line summary shown in help and banners.
	Description() string
	// Flags lists the benchmark-specific command line flags, merged with the
	// shared base flags.
	Flags() []cli.Flag
	// NewSettings builds the settings value from parsed flags.
	NewSettings(c *cli.Context) (S, error)
	// CheckParameters validates cross-option constraints that plain flag
	// parsing cannot see.
	CheckParameters(bm *Controller[S, D]) error
	// GenerateInput allocates device buffers and fills the input data.
	GenerateInput(bm *Controller[S, D]) (*D, error)
	// ExecuteKernel runs the measured kernel sequence and records
	// per-repetition timings via AddTimings.
	ExecuteKernel(bm *Controller[S, D], data *D) error
	// ValidateOutput checks the produced output against a reference.
	ValidateOutput(bm *Controller[S, D], data *D) (bool, error)
	// PrintError reports the error metrics computed during validation.
	PrintError(bm *Controller[S, D])
	// CollectResults derives the final results from the recorded timings,
	// aggregating across ranks where needed.
	CollectResults(bm *Controller[S, D]) error
	// PrintResults renders the result table.
	PrintResults(bm *Controller[S, D])
}
