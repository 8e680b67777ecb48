// Package accel abstracts the acceleration platforms a benchmark can run on.
// A backend enumerates the devices of one platform and opens execution
// contexts; contexts own device buffers and load precompiled kernel programs.
//
// The host-emulation backend in this package runs kernels as registered Go
// functions, so the full harness works on machines without accelerator
// hardware. Additional backends register themselves at init time.
package accel

import (
	"fmt"
	"sync"
)

// PlatformInfo identifies an acceleration platform.
type PlatformInfo struct {
	Name    string `json:"name"`
	Vendor  string `json:"vendor"`
	Version string `json:"version"`
}

// DeviceInfo describes one device of a platform.
type DeviceInfo struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Vendor       string `json:"vendor"`
	TotalMemory  int64  `json:"totalMemory"` // in bytes
	ComputeUnits int    `json:"computeUnits"`
}

// Backend drives one acceleration platform.
//
// Implementation notes:
//   - IsAvailable must be a quick probe without heavy initialization.
//   - Open acquires exclusive resources; the returned context must be
//     released exactly once.
type Backend interface {
	Platform() PlatformInfo
	IsAvailable() bool
	Devices() ([]DeviceInfo, error)
	Open(device DeviceInfo, interleaving bool) (Context, error)
}

// Context owns the device-side resources of one benchmark run.
type Context interface {
	// NewBuffer allocates a device buffer of elems float64 values.
	NewBuffer(elems int) (Buffer, error)
	// Load instantiates a precompiled kernel artifact on the device.
	Load(binary []byte) (Program, error)
	Release() error
}

// Buffer is a device-resident array of float64 values.
type Buffer interface {
	Len() int
	// Write copies host values into the buffer.
	Write(host []float64) error
	// Read copies the buffer into host memory.
	Read(host []float64) error
	Release() error
}

// Program is a kernel artifact instantiated on a device.
type Program interface {
	// Checksum identifies the loaded artifact in run records.
	Checksum() string
	// Kernel resolves an entry point by name.
	Kernel(name string) (Kernel, error)
	Release() error
}

// Kernel is a single entry point of a program.
type Kernel interface {
	Name() string
	// Run launches the kernel synchronously. The argument convention is the
	// kernel's own; buffers are passed as Buffer values.
	Run(args ...any) error
}

var (
	registryMu sync.RWMutex
	registry   []Backend
)

// RegisterBackend adds a platform backend. Called from init functions.
func RegisterBackend(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, b)
}

// Platforms lists the currently available backends in registration order.
func Platforms() []Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var available []Backend
	for _, b := range registry {
		if b.IsAvailable() {
			available = append(available, b)
		}
	}
	return available
}

// PlatformNames renders the available platforms for error messages.
func PlatformNames() []string {
	names := make([]string, 0)
	for i, b := range Platforms() {
		p := b.Platform()
		names = append(names, fmt.Sprintf("%d: %s (%s)", i, p.Name, p.Vendor))
	}
	return names
}
