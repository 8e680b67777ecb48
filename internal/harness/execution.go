package harness

import (
	"errors"

	"github.com/accelbench/accelbench/internal/accel"
)

// TestModeDeviceName is reported when test mode never selected a device.
const TestModeDeviceName = "TEST RUN: Not selected!"

// ExecutionContext owns the runtime entities of one benchmark run: the
// immutable settings plus, outside test mode, the selected device, its
// context and the loaded kernel program. The three handles are either all
// present or all absent.
type ExecutionContext[S Settings] struct {
	Settings S
	Device   *accel.Device
	Context  accel.Context
	Program  accel.Program

	released bool
}

// DeviceName returns the selected device name, or the test-mode sentinel when
// no device was selected.
func (e *ExecutionContext[S]) DeviceName() string {
	if e.Device == nil {
		return TestModeDeviceName
	}
	return e.Device.Name()
}

// Release tears down the owned entities in reverse acquisition order:
// program, then context, then device, then the settings. Calling it again is
// a no-op.
func (e *ExecutionContext[S]) Release() error {
	if e == nil || e.released {
		return nil
	}
	e.released = true

	var errs []error
	if e.Program != nil {
		if err := e.Program.Release(); err != nil {
			errs = append(errs, err)
		}
		e.Program = nil
	}
	if e.Context != nil {
		if err := e.Context.Release(); err != nil {
			errs = append(errs, err)
		}
		e.Context = nil
	}
	e.Device = nil
	var zero S
	e.Settings = zero
	return errors.Join(errs...)
}
