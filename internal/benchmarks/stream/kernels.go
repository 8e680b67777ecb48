package stream

import (
	"fmt"

	"github.com/accelbench/accelbench/internal/accel"
)

// Entry points expected in the precompiled kernel artifact. The argument
// convention is inputs, output, optional scalar, then the chunk as offset and
// element count.
const (
	kernelCopy  = "stream_copy"
	kernelScale = "stream_scale"
	kernelAdd   = "stream_add"
	kernelTriad = "stream_triad"
)

func init() {
	accel.RegisterEmulatedKernel(kernelCopy, copyKernel)
	accel.RegisterEmulatedKernel(kernelScale, scaleKernel)
	accel.RegisterEmulatedKernel(kernelAdd, addKernel)
	accel.RegisterEmulatedKernel(kernelTriad, triadKernel)
}

func bufferArg(name string, arg any) (*accel.HostBuffer, error) {
	b, ok := arg.(*accel.HostBuffer)
	if !ok {
		return nil, fmt.Errorf("%s expects a device buffer, got %T", name, arg)
	}
	return b, nil
}

func scalarArg(name string, arg any) (float64, error) {
	s, ok := arg.(float64)
	if !ok {
		return 0, fmt.Errorf("%s expects a float64 scalar, got %T", name, arg)
	}
	return s, nil
}

// spanArgs extracts the chunk bounds and checks them against every involved
// buffer.
func spanArgs(name string, offsetArg, countArg any, buffers ...*accel.HostBuffer) (offset, count int, err error) {
	offset, ok := offsetArg.(int)
	if !ok {
		return 0, 0, fmt.Errorf("%s expects an int offset, got %T", name, offsetArg)
	}
	count, ok = countArg.(int)
	if !ok {
		return 0, 0, fmt.Errorf("%s expects an int count, got %T", name, countArg)
	}
	for _, b := range buffers {
		if offset < 0 || count < 0 || offset+count > b.Len() {
			return 0, 0, fmt.Errorf("%s span [%d,%d) out of bounds for %d elements", name, offset, offset+count, b.Len())
		}
	}
	return offset, count, nil
}

// copyKernel implements c = a. Arguments: a, c, offset, count.
func copyKernel(args ...any) error {
	if len(args) != 4 {
		return fmt.Errorf("%s expects 4 arguments, got %d", kernelCopy, len(args))
	}
	a, err := bufferArg(kernelCopy, args[0])
	if err != nil {
		return err
	}
	c, err := bufferArg(kernelCopy, args[1])
	if err != nil {
		return err
	}
	offset, count, err := spanArgs(kernelCopy, args[2], args[3], a, c)
	if err != nil {
		return err
	}

	src, dst := a.Data(), c.Data()
	for i := offset; i < offset+count; i++ {
		dst[i] = src[i]
	}
	return nil
}

// scaleKernel implements b = s*c. Arguments: c, b, s, offset, count.
func scaleKernel(args ...any) error {
	if len(args) != 5 {
		return fmt.Errorf("%s expects 5 arguments, got %d", kernelScale, len(args))
	}
	c, err := bufferArg(kernelScale, args[0])
	if err != nil {
		return err
	}
	b, err := bufferArg(kernelScale, args[1])
	if err != nil {
		return err
	}
	s, err := scalarArg(kernelScale, args[2])
	if err != nil {
		return err
	}
	offset, count, err := spanArgs(kernelScale, args[3], args[4], c, b)
	if err != nil {
		return err
	}

	src, dst := c.Data(), b.Data()
	for i := offset; i < offset+count; i++ {
		dst[i] = s * src[i]
	}
	return nil
}

// addKernel implements c = a+b. Arguments: a, b, c, offset, count.
func addKernel(args ...any) error {
	if len(args) != 5 {
		return fmt.Errorf("%s expects 5 arguments, got %d", kernelAdd, len(args))
	}
	a, err := bufferArg(kernelAdd, args[0])
	if err != nil {
		return err
	}
	b, err := bufferArg(kernelAdd, args[1])
	if err != nil {
		return err
	}
	c, err := bufferArg(kernelAdd, args[2])
	if err != nil {
		return err
	}
	offset, count, err := spanArgs(kernelAdd, args[3], args[4], a, b, c)
	if err != nil {
		return err
	}

	in1, in2, dst := a.Data(), b.Data(), c.Data()
	for i := offset; i < offset+count; i++ {
		dst[i] = in1[i] + in2[i]
	}
	return nil
}

// triadKernel implements a = b+s*c. Arguments: b, c, a, s, offset, count.
func triadKernel(args ...any) error {
	if len(args) != 6 {
		return fmt.Errorf("%s expects 6 arguments, got %d", kernelTriad, len(args))
	}
	b, err := bufferArg(kernelTriad, args[0])
	if err != nil {
		return err
	}
	c, err := bufferArg(kernelTriad, args[1])
	if err != nil {
		return err
	}
	a, err := bufferArg(kernelTriad, args[2])
	if err != nil {
		return err
	}
	s, err := scalarArg(kernelTriad, args[3])
	if err != nil {
		return err
	}
	offset, count, err := spanArgs(kernelTriad, args[4], args[5], b, c, a)
	if err != nil {
		return err
	}

	in1, in2, dst := b.Data(), c.Data(), a.Data()
	for i := offset; i < offset+count; i++ {
		dst[i] = in1[i] + s*in2[i]
	}
	return nil
}
