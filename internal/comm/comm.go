// Package comm coordinates the cooperating processes of a distributed
// benchmark run. Every process executes the same binary; rank 0 acts as the
// root that prints, persists and aggregates.
package comm

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Environment variables resolved by FromEnv. A launcher (mpirun-style wrapper,
// SLURM prolog, shell script) sets these per process.
const (
	EnvRank        = "ABENCH_RANK"
	EnvWorldSize   = "ABENCH_WORLD_SIZE"
	EnvCoordinator = "ABENCH_COORDINATOR"
)

// Op selects the fold applied by Reduce.
type Op int

const (
	OpSum Op = iota
	OpMin
	OpMax
)

// Communicator coordinates the benchmark lifecycle across the process group
// of one run. Barriers and reductions are collective: every rank must call
// them in the same order.
type Communicator interface {
	Rank() int
	Size() int
	// Barrier blocks until every rank of the group has entered it.
	Barrier() error
	// Reduce folds the values element-wise across all ranks. The root rank
	// receives the reduction; all other ranks receive nil. Every rank must
	// pass the same number of values.
	Reduce(values []float64, op Op) ([]float64, error)
	// Transport names the coordination mechanism for run records.
	Transport() string
	Close() error
}

// FromEnv resolves the process group from the environment. Without a launcher
// (world size unset or 1) the run is a plain single-process benchmark.
func FromEnv(log *zap.Logger) (Communicator, error) {
	size, err := intFromEnv(EnvWorldSize, 1)
	if err != nil {
		return nil, err
	}
	rank, err := intFromEnv(EnvRank, 0)
	if err != nil {
		return nil, err
	}
	if size <= 1 {
		return NewLocal(), nil
	}
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("%s=%d out of range for %s=%d", EnvRank, rank, EnvWorldSize, size)
	}
	coordinator := os.Getenv(EnvCoordinator)
	if coordinator == "" {
		return nil, fmt.Errorf("%s must be set when %s > 1", EnvCoordinator, EnvWorldSize)
	}
	return NewTCPGroup(log, rank, size, coordinator)
}

func intFromEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", name, raw, err)
	}
	return v, nil
}

// Local is the single-process communicator. All collectives are no-ops and
// the sole rank is the root.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (*Local) Rank() int      { return 0 }
func (*Local) Size() int      { return 1 }
func (*Local) Barrier() error { return nil }

func (*Local) Reduce(values []float64, _ Op) ([]float64, error) {
	out := make([]float64, len(values))
	copy(out, values)
	return out, nil
}

func (*Local) Transport() string { return "local" }
func (*Local) Close() error      { return nil }

func fold(op Op, acc, in []float64) error {
	if len(acc) != len(in) {
		return fmt.Errorf("reduce length mismatch: %d vs %d", len(acc), len(in))
	}
	for i, v := range in {
		switch op {
		case OpSum:
			acc[i] += v
		case OpMin:
			acc[i] = math.Min(acc[i], v)
		case OpMax:
			acc[i] = math.Max(acc[i], v)
		default:
			return fmt.Errorf("unknown reduce op %d", op)
		}
	}
	return nil
}
