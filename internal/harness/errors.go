package harness

import (
	"errors"
	"fmt"
)

// ErrSetupRequired reports Execute being called without a successful Setup.
var ErrSetupRequired = errors.New("benchmark execution started without successfully running the benchmark setup")

// ConfigError reports invalid or missing options. It is raised before any
// device resource is acquired, so the message guides the user to the help
// output.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Option != "" {
		msg = fmt.Sprintf("%s with option -%s", e.Reason, e.Option)
	}
	return fmt.Sprintf("%s! Use -h to show all available options", msg)
}

// SetupError reports a failed acquisition of the device, the context or the
// kernel program.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("select %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// PayloadError reports a failure inside a benchmark hook, including recovered
// panics. It is caught at the phase boundary and never escapes the
// controller.
type PayloadError struct {
	Phase string
	Err   error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }
