package accel

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// KernelFunc is the host implementation of an emulated kernel. Buffers arrive
// as the *HostBuffer values the payload allocated; scalars are passed through
// unchanged.
type KernelFunc func(args ...any) error

var (
	kernelMu sync.RWMutex
	kernels  = map[string]KernelFunc{}
)

// RegisterEmulatedKernel binds a kernel entry point to a host function.
// Benchmark packages register their kernels from init.
func RegisterEmulatedKernel(name string, fn KernelFunc) {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	kernels[name] = fn
}

func init() {
	RegisterBackend(&hostBackend{})
}

// hostBackend emulates an accelerator on the host CPU.
type hostBackend struct{}

func (*hostBackend) Platform() PlatformInfo {
	return PlatformInfo{Name: "Host Emulation", Vendor: "accelbench", Version: runtime.Version()}
}

func (*hostBackend) IsAvailable() bool { return true }

func (*hostBackend) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{
		Index:        0,
		Name:         fmt.Sprintf("Emulated Device (%s, %d threads)", runtime.GOARCH, runtime.NumCPU()),
		Vendor:       "accelbench",
		TotalMemory:  totalSystemMemory(),
		ComputeUnits: runtime.NumCPU(),
	}}, nil
}

func (*hostBackend) Open(_ DeviceInfo, interleaving bool) (Context, error) {
	return &hostContext{interleaving: interleaving}, nil
}

type hostContext struct {
	interleaving bool
	released     bool
	buffers      []*HostBuffer
}

func (c *hostContext) NewBuffer(elems int) (Buffer, error) {
	if c.released {
		return nil, errors.New("context already released")
	}
	if elems <= 0 {
		return nil, fmt.Errorf("buffer size must be positive, got %d", elems)
	}
	b := &HostBuffer{data: make([]float64, elems)}
	c.buffers = append(c.buffers, b)
	return b, nil
}

func (c *hostContext) Load(binary []byte) (Program, error) {
	if c.released {
		return nil, errors.New("context already released")
	}
	if len(binary) == 0 {
		return nil, errors.New("empty kernel artifact")
	}
	sum := sha256.Sum256(binary)
	return &hostProgram{checksum: hex.EncodeToString(sum[:])}, nil
}

func (c *hostContext) Release() error {
	if c.released {
		return nil
	}
	c.released = true
	for _, b := range c.buffers {
		b.Release()
	}
	c.buffers = nil
	return nil
}

// HostBuffer is the emulated device buffer. Emulated kernels reach its
// backing array through Data.
type HostBuffer struct {
	data     []float64
	released bool
}

func (b *HostBuffer) Len() int { return len(b.data) }

func (b *HostBuffer) Write(host []float64) error {
	if b.released {
		return errors.New("buffer already released")
	}
	if len(host) != len(b.data) {
		return fmt.Errorf("buffer size mismatch: %d host values for %d buffer elements", len(host), len(b.data))
	}
	copy(b.data, host)
	return nil
}

func (b *HostBuffer) Read(host []float64) error {
	if b.released {
		return errors.New("buffer already released")
	}
	if len(host) != len(b.data) {
		return fmt.Errorf("buffer size mismatch: %d host values for %d buffer elements", len(host), len(b.data))
	}
	copy(host, b.data)
	return nil
}

// Data exposes the backing array to emulated kernels.
func (b *HostBuffer) Data() []float64 { return b.data }

func (b *HostBuffer) Release() error {
	b.released = true
	return nil
}

type hostProgram struct {
	checksum string
	released bool
}

func (p *hostProgram) Checksum() string { return p.checksum }

func (p *hostProgram) Kernel(name string) (Kernel, error) {
	if p.released {
		return nil, errors.New("program already released")
	}
	kernelMu.RLock()
	fn, ok := kernels[name]
	kernelMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("kernel %s is not registered in the emulation backend", name)
	}
	return &hostKernel{name: name, fn: fn}, nil
}

func (p *hostProgram) Release() error {
	p.released = true
	return nil
}

type hostKernel struct {
	name string
	fn   KernelFunc
}

func (k *hostKernel) Name() string { return k.name }

func (k *hostKernel) Run(args ...any) error {
	return k.fn(args...)
}

// totalSystemMemory returns total system memory in bytes.
func totalSystemMemory() int64 {
	// Return a default value for now
	return 8 * 1024 * 1024 * 1024 // 8GB
}
