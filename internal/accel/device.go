package accel

import (
	"fmt"
	"strings"
)

// Device is a selected device together with the backend that drives it.
type Device struct {
	Platform PlatformInfo
	Info     DeviceInfo

	backend Backend
}

// Name returns the device name reported in logs and run records.
func (d *Device) Name() string {
	return d.Info.Name
}

// NewContext opens an execution context on the device.
func (d *Device) NewContext(interleaving bool) (Context, error) {
	ctx, err := d.backend.Open(d.Info, interleaving)
	if err != nil {
		return nil, fmt.Errorf("open context on %s: %w", d.Info.Name, err)
	}
	return ctx, nil
}

// SelectDevice resolves a platform and device selection. The platform is
// chosen by name filter when one is given, by index otherwise; an index of -1
// auto-selects when exactly one candidate exists. Device selection within the
// platform follows the same rule.
func SelectDevice(platformIndex, deviceIndex int, platformFilter string) (*Device, error) {
	platforms := Platforms()
	if len(platforms) == 0 {
		return nil, fmt.Errorf("no acceleration platform available")
	}

	backend, err := selectPlatform(platforms, platformIndex, platformFilter)
	if err != nil {
		return nil, err
	}

	devices, err := backend.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices of %s: %w", backend.Platform().Name, err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("platform %s has no usable device", backend.Platform().Name)
	}

	var info DeviceInfo
	switch {
	case deviceIndex >= 0:
		if deviceIndex >= len(devices) {
			return nil, fmt.Errorf("device index %d out of range, platform %s has %d devices",
				deviceIndex, backend.Platform().Name, len(devices))
		}
		info = devices[deviceIndex]
	case len(devices) == 1:
		info = devices[0]
	default:
		return nil, fmt.Errorf("platform %s has %d devices, select one with --device",
			backend.Platform().Name, len(devices))
	}

	return &Device{Platform: backend.Platform(), Info: info, backend: backend}, nil
}

func selectPlatform(platforms []Backend, index int, filter string) (Backend, error) {
	if filter != "" {
		var matches []Backend
		for _, b := range platforms {
			if strings.Contains(strings.ToLower(b.Platform().Name), strings.ToLower(filter)) {
				matches = append(matches, b)
			}
		}
		switch len(matches) {
		case 1:
			return matches[0], nil
		case 0:
			return nil, fmt.Errorf("no platform matches %q, available: %s", filter, strings.Join(PlatformNames(), ", "))
		default:
			return nil, fmt.Errorf("platform filter %q is ambiguous, matches %d platforms", filter, len(matches))
		}
	}

	switch {
	case index >= 0:
		if index >= len(platforms) {
			return nil, fmt.Errorf("platform index %d out of range, available: %s", index, strings.Join(PlatformNames(), ", "))
		}
		return platforms[index], nil
	case len(platforms) == 1:
		return platforms[0], nil
	default:
		return nil, fmt.Errorf("%d platforms available, select one with --platform: %s", len(platforms), strings.Join(PlatformNames(), ", "))
	}
}
