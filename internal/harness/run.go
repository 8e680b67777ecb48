package harness

import (
	"fmt"
	"os"
)

// Run wires a payload into a complete benchmark binary: it builds the
// controller, runs setup and execution and maps the outcome to a process
// exit code. Zero means the output was validated, or that a test-only run
// parsed its parameters successfully; help output also exits zero.
func Run[S Settings, D any](payload Benchmark[S, D], args []string, opts ...Option) int {
	o := options{errw: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	bm, err := New(payload, opts...)
	if err != nil {
		fmt.Fprintln(o.errw, err)
		return 1
	}
	defer bm.Close()

	if !bm.Setup(args) {
		if bm.HelpShown() {
			return 0
		}
		return 1
	}
	if !bm.Execute() {
		return 1
	}
	return 0
}
