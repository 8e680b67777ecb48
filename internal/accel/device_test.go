package accel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is registered once and switched on only inside the tests that
// need a second platform.
type fakeBackend struct {
	available bool
	devices   []DeviceInfo
}

func (f *fakeBackend) Platform() PlatformInfo {
	return PlatformInfo{Name: "Fake FPGA", Vendor: "testvendor", Version: "1.0"}
}
func (f *fakeBackend) IsAvailable() bool { return f.available }
func (f *fakeBackend) Devices() ([]DeviceInfo, error) {
	return f.devices, nil
}
func (f *fakeBackend) Open(_ DeviceInfo, _ bool) (Context, error) {
	return &hostContext{}, nil
}

var testFake = &fakeBackend{}

func init() {
	RegisterBackend(testFake)
}

func withFake(t *testing.T, devices []DeviceInfo) {
	t.Helper()
	testFake.available = true
	testFake.devices = devices
	t.Cleanup(func() { testFake.available = false })
}

// platformIndex resolves the index SelectDevice expects for a platform. Init
// order decides where each backend lands in the registry, so tests never
// hard-code indices.
func platformIndex(t *testing.T, name string) int {
	t.Helper()
	for i, b := range Platforms() {
		if b.Platform().Name == name {
			return i
		}
	}
	t.Fatalf("platform %s not available", name)
	return -1
}

func TestPlatforms(t *testing.T) {
	platforms := Platforms()
	require.Len(t, platforms, 1)
	assert.Equal(t, "Host Emulation", platforms[0].Platform().Name)

	withFake(t, []DeviceInfo{{Index: 0, Name: "fpga0"}})
	assert.Len(t, Platforms(), 2)
}

func TestSelectDevice(t *testing.T) {
	t.Run("auto-selects sole platform and device", func(t *testing.T) {
		dev, err := SelectDevice(-1, -1, "")
		require.NoError(t, err)
		assert.Equal(t, "Host Emulation", dev.Platform.Name)
		assert.Contains(t, dev.Name(), "Emulated Device")
	})

	t.Run("platform by index", func(t *testing.T) {
		withFake(t, []DeviceInfo{{Index: 0, Name: "fpga0"}})

		dev, err := SelectDevice(platformIndex(t, "Fake FPGA"), -1, "")
		require.NoError(t, err)
		assert.Equal(t, "Fake FPGA", dev.Platform.Name)
		assert.Equal(t, "fpga0", dev.Name())
	})

	t.Run("platform index out of range", func(t *testing.T) {
		_, err := SelectDevice(7, -1, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("platform by name filter", func(t *testing.T) {
		withFake(t, []DeviceInfo{{Index: 0, Name: "fpga0"}})

		dev, err := SelectDevice(-1, -1, "fake")
		require.NoError(t, err)
		assert.Equal(t, "Fake FPGA", dev.Platform.Name)
	})

	t.Run("filter without match", func(t *testing.T) {
		_, err := SelectDevice(-1, -1, "does-not-exist")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no platform matches")
	})

	t.Run("multiple platforms need an explicit choice", func(t *testing.T) {
		withFake(t, []DeviceInfo{{Index: 0, Name: "fpga0"}})

		_, err := SelectDevice(-1, -1, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--platform")
	})

	t.Run("device by index", func(t *testing.T) {
		withFake(t, []DeviceInfo{{Index: 0, Name: "fpga0"}, {Index: 1, Name: "fpga1"}})

		dev, err := SelectDevice(platformIndex(t, "Fake FPGA"), 1, "")
		require.NoError(t, err)
		assert.Equal(t, "fpga1", dev.Name())
	})

	t.Run("device index out of range", func(t *testing.T) {
		withFake(t, []DeviceInfo{{Index: 0, Name: "fpga0"}})

		_, err := SelectDevice(platformIndex(t, "Fake FPGA"), 3, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("multiple devices need an explicit choice", func(t *testing.T) {
		withFake(t, []DeviceInfo{{Index: 0, Name: "fpga0"}, {Index: 1, Name: "fpga1"}})

		_, err := SelectDevice(platformIndex(t, "Fake FPGA"), -1, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--device")
	})
}
