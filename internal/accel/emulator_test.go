package accel

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openHostContext(t *testing.T) Context {
	t.Helper()
	dev, err := SelectDevice(0, -1, "emulation")
	require.NoError(t, err)
	ctx, err := dev.NewContext(false)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Release() })
	return ctx
}

func TestHostBuffer(t *testing.T) {
	ctx := openHostContext(t)

	t.Run("write read round trip", func(t *testing.T) {
		buf, err := ctx.NewBuffer(4)
		require.NoError(t, err)
		assert.Equal(t, 4, buf.Len())

		require.NoError(t, buf.Write([]float64{1, 2, 3, 4}))
		out := make([]float64, 4)
		require.NoError(t, buf.Read(out))
		assert.Equal(t, []float64{1, 2, 3, 4}, out)
	})

	t.Run("size mismatch", func(t *testing.T) {
		buf, err := ctx.NewBuffer(4)
		require.NoError(t, err)

		assert.Error(t, buf.Write([]float64{1, 2}))
		assert.Error(t, buf.Read(make([]float64, 7)))
	})

	t.Run("non-positive size", func(t *testing.T) {
		_, err := ctx.NewBuffer(0)
		assert.Error(t, err)
	})

	t.Run("use after release", func(t *testing.T) {
		buf, err := ctx.NewBuffer(2)
		require.NoError(t, err)
		require.NoError(t, buf.Release())

		assert.Error(t, buf.Write([]float64{1, 2}))
		assert.Error(t, buf.Read(make([]float64, 2)))
	})
}

func TestHostContextRelease(t *testing.T) {
	dev, err := SelectDevice(0, -1, "emulation")
	require.NoError(t, err)
	ctx, err := dev.NewContext(true)
	require.NoError(t, err)

	buf, err := ctx.NewBuffer(2)
	require.NoError(t, err)

	require.NoError(t, ctx.Release())
	require.NoError(t, ctx.Release()) // idempotent

	// released context refuses new work, owned buffers are gone
	_, err = ctx.NewBuffer(2)
	assert.Error(t, err)
	assert.Error(t, buf.Write([]float64{1, 2}))
	_, err = ctx.Load([]byte("binary"))
	assert.Error(t, err)
}

func TestBuildProgram(t *testing.T) {
	ctx := openHostContext(t)

	t.Run("missing kernel file", func(t *testing.T) {
		_, err := BuildProgram(ctx, filepath.Join(t.TempDir(), "missing.aocx"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load kernel file")
	})

	t.Run("loads artifact and fingerprints it", func(t *testing.T) {
		content := []byte("precompiled kernel image")
		path := filepath.Join(t.TempDir(), "stream.aocx")
		require.NoError(t, os.WriteFile(path, content, 0o644))

		program, err := BuildProgram(ctx, path)
		require.NoError(t, err)

		sum := sha256.Sum256(content)
		assert.Equal(t, hex.EncodeToString(sum[:]), program.Checksum())
	})

	t.Run("empty artifact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.aocx")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := BuildProgram(ctx, path)
		assert.Error(t, err)
	})
}

func TestEmulatedKernels(t *testing.T) {
	RegisterEmulatedKernel("test_scale", func(args ...any) error {
		buf := args[0].(*HostBuffer).Data()
		factor := args[1].(float64)
		for i := range buf {
			buf[i] *= factor
		}
		return nil
	})

	ctx := openHostContext(t)
	program, err := ctx.Load([]byte("image"))
	require.NoError(t, err)

	t.Run("registered kernel runs against buffers", func(t *testing.T) {
		kernel, err := program.Kernel("test_scale")
		require.NoError(t, err)
		assert.Equal(t, "test_scale", kernel.Name())

		buf, err := ctx.NewBuffer(3)
		require.NoError(t, err)
		require.NoError(t, buf.Write([]float64{1, 2, 3}))

		require.NoError(t, kernel.Run(buf, 2.0))

		out := make([]float64, 3)
		require.NoError(t, buf.Read(out))
		assert.Equal(t, []float64{2, 4, 6}, out)
	})

	t.Run("unregistered kernel", func(t *testing.T) {
		_, err := program.Kernel("no_such_kernel")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})

	t.Run("released program refuses lookups", func(t *testing.T) {
		require.NoError(t, program.Release())
		_, err := program.Kernel("test_scale")
		assert.Error(t, err)
	})
}
