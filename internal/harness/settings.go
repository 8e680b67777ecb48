package harness

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/accelbench/accelbench/internal/config"
)

// CommType classifies how kernel replicas exchange data during execution.
type CommType string

const (
	CommAuto        CommType = "auto"
	CommCPUOnly     CommType = "cpu_only"
	CommPCIE        CommType = "pcie"
	CommIEC         CommType = "iec"
	CommUnsupported CommType = "unsupported"
)

// Display renders the communication type for configuration summaries.
func (c CommType) Display() string {
	switch c {
	case CommCPUOnly:
		return "CPU only"
	case CommPCIE:
		return "PCIE"
	case CommIEC:
		return "IEC"
	default:
		return "UNSUPPORTED"
	}
}

// resolveCommType maps the selector to a concrete communication type. The
// auto selector inspects the kernel file name for the markers replication
// toolchains put there.
func resolveCommType(selector, kernelFile string) (CommType, error) {
	switch CommType(selector) {
	case CommCPUOnly, CommPCIE, CommIEC:
		return CommType(selector), nil
	case CommAuto:
		base := strings.ToLower(filepath.Base(kernelFile))
		switch {
		case strings.Contains(base, "_iec"):
			return CommIEC, nil
		case strings.Contains(base, "_pcie"):
			return CommPCIE, nil
		default:
			return CommCPUOnly, nil
		}
	default:
		return CommUnsupported, &ConfigError{Option: "comm-type", Reason: fmt.Sprintf("Unknown communication type %q", selector)}
	}
}

// Settings is the read surface the harness needs from a settings value.
// Benchmark-specific settings embed BaseSettings and extend Map with their
// own entries; they never remove base entries.
type Settings interface {
	Base() *BaseSettings
	// Map returns the printable view of the settings. It is the single
	// source of truth for the configuration summary and the run-record dump.
	Map() map[string]string
}

// BaseSettings are the options shared by every benchmark. Values are
// immutable after construction.
type BaseSettings struct {
	// Repetitions is the number of times the measured kernel sequence runs.
	Repetitions uint
	// MemoryInterleaving toggles host-triggered device memory interleaving.
	MemoryInterleaving bool
	// SkipValidation leaves the output unchecked; the run verdict stays
	// unknown.
	SkipValidation bool
	// Platform and Device select by index; -1 auto-selects a sole candidate.
	Platform int
	Device   int
	// PlatformFilter selects the platform by name instead of index.
	PlatformFilter string
	// KernelFile is the path of the precompiled kernel artifact.
	KernelFile string
	// KernelReplications is the number of kernel replicas the artifact holds.
	KernelReplications uint
	// TestOnly stops after configuration parsing; no device is touched.
	TestOnly bool
	// DumpFile receives the JSON run record; empty means no dump.
	DumpFile string
	// CommType is the resolved replica communication type.
	CommType CommType

	// Verbosity is the log level, PromFile an optional metrics textfile
	// target, SignKeyFile an optional key for signing the dump.
	Verbosity   string
	PromFile    string
	SignKeyFile string
}

func (s *BaseSettings) Base() *BaseSettings { return s }

func (s *BaseSettings) Map() map[string]string {
	return map[string]string{
		"Repetitions":         strconv.FormatUint(uint64(s.Repetitions), 10),
		"Kernel Replications": strconv.FormatUint(uint64(s.KernelReplications), 10),
		"Kernel File":         s.KernelFile,
		"Test Mode":           yesNo(s.TestOnly),
		"Communication Type":  s.CommType.Display(),
		"Memory Interleaving": yesNo(s.MemoryInterleaving),
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// BaseFlags is the flag set shared by every benchmark binary. Defaults come
// from the installation configuration.
func BaseFlags(d config.Defaults) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Kernel file name"},
		&cli.UintFlag{Name: "n", Usage: "Number of repetitions used for each benchmark measurement", Value: d.Repetitions},
		&cli.BoolFlag{Name: "i", Usage: "Use memory interleaving on the device"},
		&cli.BoolFlag{Name: "skip-validation", Usage: "Skip the validation of the output data"},
		&cli.IntFlag{Name: "device", Usage: "Index of the device that has to be used", Value: d.Device},
		&cli.IntFlag{Name: "platform", Usage: "Index of the platform that has to be used", Value: d.Platform},
		&cli.StringFlag{Name: "platform_str", Usage: "Name of the platform that has to be used"},
		&cli.UintFlag{Name: "r", Usage: "Number of kernel replications used", Value: d.KernelReplications},
		&cli.StringFlag{Name: "comm-type", Usage: "Communication type between kernel replicas (auto, cpu_only, pcie, iec)", Value: d.CommType},
		&cli.StringFlag{Name: "dump-json", Usage: "Dump the benchmark configuration and results to this file in JSON format"},
		&cli.BoolFlag{Name: "test", Usage: "Only test the benchmark setup and parse the input parameters"},
		&cli.StringFlag{Name: "verbosity", Usage: "Log verbosity (debug, info, warn, error)", Value: d.Verbosity},
		&cli.StringFlag{Name: "prom-dump", Usage: "Write prometheus metrics to this file after the run"},
		&cli.StringFlag{Name: "sign-key", Usage: "Sign the JSON dump with the key file at this path"},
	}
}

// NewBaseSettings builds the shared settings from parsed flags. All
// validation that needs no device access happens here.
func NewBaseSettings(c *cli.Context) (*BaseSettings, error) {
	kernelFile := c.String("file")
	if kernelFile == "" {
		return nil, &ConfigError{Option: "f", Reason: "Kernel file must be given"}
	}
	repetitions := c.Uint("n")
	if repetitions == 0 {
		return nil, &ConfigError{Option: "n", Reason: "Number of repetitions must be greater than zero"}
	}
	replications := c.Uint("r")
	if replications == 0 {
		return nil, &ConfigError{Option: "r", Reason: "Number of kernel replications must be greater than zero"}
	}
	commType, err := resolveCommType(c.String("comm-type"), kernelFile)
	if err != nil {
		return nil, err
	}

	return &BaseSettings{
		Repetitions:        repetitions,
		MemoryInterleaving: c.Bool("i"),
		SkipValidation:     c.Bool("skip-validation"),
		Platform:           c.Int("platform"),
		Device:             c.Int("device"),
		PlatformFilter:     c.String("platform_str"),
		KernelFile:         kernelFile,
		KernelReplications: replications,
		TestOnly:           c.Bool("test"),
		DumpFile:           c.String("dump-json"),
		CommType:           commType,
		Verbosity:          c.String("verbosity"),
		PromFile:           c.String("prom-dump"),
		SignKeyFile:        c.String("sign-key"),
	}, nil
}
