// Package config holds the built-in defaults for benchmark options and the
// optional YAML defaults file that overrides them per installation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvDefaultsFile names the environment variable pointing at an optional
// defaults file.
const EnvDefaultsFile = "ABENCH_DEFAULTS"

// Defaults are the fallback values for the shared benchmark options.
type Defaults struct {
	Repetitions        uint   `yaml:"repetitions"`
	KernelReplications uint   `yaml:"kernelReplications"`
	Platform           int    `yaml:"platform"`
	Device             int    `yaml:"device"`
	CommType           string `yaml:"commType"`
	Verbosity          string `yaml:"verbosity"`
}

// BuiltIn returns the compiled-in defaults. Platform and device default to -1,
// which auto-selects when exactly one candidate exists.
func BuiltIn() Defaults {
	return Defaults{
		Repetitions:        10,
		KernelReplications: 1,
		Platform:           -1,
		Device:             -1,
		CommType:           "auto",
		Verbosity:          "info",
	}
}

// Load reads a defaults file and overlays it on the built-in values. Fields
// absent from the file keep their built-in value.
func Load(path string) (Defaults, error) {
	d := BuiltIn()
	data, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parse defaults file %s: %w", path, err)
	}
	if d.Repetitions == 0 {
		d.Repetitions = BuiltIn().Repetitions
	}
	if d.KernelReplications == 0 {
		d.KernelReplications = BuiltIn().KernelReplications
	}
	if d.CommType == "" {
		d.CommType = BuiltIn().CommType
	}
	if d.Verbosity == "" {
		d.Verbosity = BuiltIn().Verbosity
	}
	return d, nil
}

// FromEnv resolves the effective defaults: the file named by ABENCH_DEFAULTS
// when set, the built-in values otherwise.
func FromEnv() (Defaults, error) {
	path := os.Getenv(EnvDefaultsFile)
	if path == "" {
		return BuiltIn(), nil
	}
	return Load(path)
}
