package harness

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/accelbench/accelbench/internal/accel"
	"github.com/accelbench/accelbench/internal/buildinfo"
	"github.com/accelbench/accelbench/internal/comm"
	"github.com/accelbench/accelbench/internal/config"
	"github.com/accelbench/accelbench/internal/logger"
	"github.com/accelbench/accelbench/internal/metrics"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// Controller drives one benchmark payload through the lifecycle. A controller
// governs exactly one run; Setup and Execute are its only entry points and
// convert every failure into a boolean plus diagnostics, never a propagated
// error.
type Controller[S Settings, D any] struct {
	payload Benchmark[S, D]

	log         *zap.Logger
	logInjected bool
	comm        comm.Communicator
	ownsComm    bool
	out         io.Writer
	errw        io.Writer
	now         func() time.Time

	exec      *ExecutionContext[S]
	setupOK   bool
	helpShown bool
	validated bool

	timings map[string][]float64
	results map[string]Result
	errors  map[string]Result
}

type options struct {
	comm comm.Communicator
	log  *zap.Logger
	out  io.Writer
	errw io.Writer
	now  func() time.Time
}

type Option func(*options)

// WithCommunicator lets the controller join an existing process group. A
// borrowed group is not closed by the controller.
func WithCommunicator(c comm.Communicator) Option {
	return func(o *options) { o.comm = c }
}

// WithLogger replaces the controller-built logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithOutput redirects the report and diagnostic streams.
func WithOutput(out, errw io.Writer) Option {
	return func(o *options) {
		o.out = out
		o.errw = errw
	}
}

// WithClock overrides the time source of run records.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a controller for the payload and resolves its process group.
// Without WithCommunicator the group comes from the launcher environment and
// is owned by the controller.
func New[S Settings, D any](payload Benchmark[S, D], opts ...Option) (*Controller[S, D], error) {
	o := options{out: os.Stdout, errw: os.Stderr, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	bm := &Controller[S, D]{
		payload: payload,
		out:     o.out,
		errw:    o.errw,
		now:     o.now,
		timings: make(map[string][]float64),
		results: make(map[string]Result),
		errors:  make(map[string]Result),
	}

	if o.log != nil {
		bm.log = o.log
		bm.logInjected = true
	} else {
		log, err := logger.New("info")
		if err != nil {
			return nil, err
		}
		bm.log = log
	}
	bm.log = bm.log.Named("harness")

	if o.comm != nil {
		bm.comm = o.comm
	} else {
		group, err := comm.FromEnv(bm.log)
		if err != nil {
			return nil, fmt.Errorf("resolve process group: %w", err)
		}
		bm.comm = group
		bm.ownsComm = true
	}

	return bm, nil
}

// Setup parses the arguments, acquires the execution context and, on the root
// rank, checks parameters and prints the final configuration. Every failure
// is reported on the diagnostic stream and turns into a false return. After a
// successful Setup further calls are no-ops.
func (bm *Controller[S, D]) Setup(args []string) bool {
	if bm.setupOK {
		return true
	}
	success := true
	func() {
		defer func() {
			if r := recover(); r != nil {
				bm.reportSetupFailure(fmt.Errorf("panic: %v", r))
				success = false
			}
		}()
		if err := bm.setup(args); err != nil {
			bm.reportSetupFailure(err)
			success = false
		}
	}()
	if bm.helpShown {
		// help output replaced the run; nothing was set up, nothing failed
		return false
	}
	bm.setupOK = success
	if !success {
		metrics.SetupFailures.WithLabelValues(bm.payload.Name()).Inc()
	}
	return success
}

func (bm *Controller[S, D]) reportSetupFailure(err error) {
	fmt.Fprintln(bm.errw, "An error occurred while setting up the benchmark:")
	fmt.Fprintf(bm.errw, "\t%v\n", err)
	bm.log.Error("benchmark setup failed", zap.Error(err))
}

func (bm *Controller[S, D]) setup(args []string) error {
	defaults, err := config.FromEnv()
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("Defaults file could not be loaded: %v", err)}
	}

	var parsed S
	parseOK := false
	app := &cli.App{
		Name:            bm.payload.Name(),
		Usage:           bm.payload.Description(),
		Version:         buildinfo.Version,
		HideHelpCommand: true,
		Flags:           append(BaseFlags(defaults), bm.payload.Flags()...),
		Writer:          bm.out,
		ErrWriter:       bm.errw,
		Action: func(c *cli.Context) error {
			settings, err := bm.payload.NewSettings(c)
			if err != nil {
				return err
			}
			parsed = settings
			parseOK = true
			return nil
		},
	}
	if err := app.Run(args); err != nil {
		return err
	}
	if !parseOK {
		// urfave/cli served -h or -v instead of running the action
		bm.helpShown = true
		return nil
	}

	base := parsed.Base()
	if !bm.logInjected {
		log, err := logger.New(base.Verbosity)
		if err != nil {
			return &ConfigError{Option: "verbosity", Reason: fmt.Sprintf("Unknown verbosity %q", base.Verbosity)}
		}
		bm.log = log.Named("harness")
	}

	exec := &ExecutionContext[S]{Settings: parsed}
	if !base.TestOnly {
		device, err := accel.SelectDevice(base.Platform, base.Device, base.PlatformFilter)
		if err != nil {
			return &SetupError{Stage: "device", Err: err}
		}
		context, err := device.NewContext(base.MemoryInterleaving)
		if err != nil {
			return &SetupError{Stage: "context", Err: err}
		}
		program, err := accel.BuildProgram(context, base.KernelFile)
		if err != nil {
			context.Release()
			return &SetupError{Stage: "program", Err: err}
		}
		exec.Device = device
		exec.Context = context
		exec.Program = program
		bm.log.Info("execution context acquired",
			zap.String("device", device.Name()),
			zap.String("platform", device.Platform.Name),
			zap.String("kernelFile", base.KernelFile))
	}
	bm.exec = exec

	if bm.comm.Rank() == 0 {
		if err := bm.payload.CheckParameters(bm); err != nil {
			fmt.Fprintln(bm.errw, "ERROR: Input parameter check failed!")
			return err
		}
		bm.printFinalConfiguration()
	}
	return nil
}

// printFinalConfiguration writes the banner and the settings summary.
func (bm *Controller[S, D]) printFinalConfiguration() {
	banner := figure.NewFigure(bm.payload.Name(), "", false)
	fmt.Fprint(bm.out, banner.String())
	fmt.Fprintln(bm.out, bm.payload.Description())
	if bm.comm.Size() > 1 {
		fmt.Fprintf(bm.out, "Ranks:        %d (%s)\n", bm.comm.Size(), bm.comm.Transport())
	}
	fmt.Fprintf(bm.out, "Version:      %s\n", buildinfo.Version)
	fmt.Fprintf(bm.out, "Config. Time: %s\n", buildinfo.ConfigTime)
	fmt.Fprintf(bm.out, "Git Commit:   %s\n", buildinfo.GitCommit)
	fmt.Fprintln(bm.out)
	fmt.Fprintln(bm.out, "Summary:")

	settings := bm.exec.Settings.Map()
	for _, key := range sortedKeys(settings) {
		fmt.Fprintf(bm.out, "%-*s%s\n", summaryKeyWidth, key, settings[key])
	}
	fmt.Fprintf(bm.out, "%-*s%s\n", summaryKeyWidth, "Device", bm.exec.DeviceName())
	fmt.Fprintln(bm.out)
}

const summaryKeyWidth = 2 * (valueSpace + unitSpace + 1)

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

// ExecutionContext exposes the acquired runtime entities. It is nil until
// Setup succeeded.
func (bm *Controller[S, D]) ExecutionContext() *ExecutionContext[S] {
	return bm.exec
}

// Settings returns the parsed settings value. Only valid after a successful
// Setup.
func (bm *Controller[S, D]) Settings() S {
	return bm.exec.Settings
}

// Rank returns this process' rank in the group; 0 is the root.
func (bm *Controller[S, D]) Rank() int { return bm.comm.Rank() }

// WorldSize returns the number of cooperating processes.
func (bm *Controller[S, D]) WorldSize() int { return bm.comm.Size() }

// Comm exposes the process group for payload-level reductions.
func (bm *Controller[S, D]) Comm() comm.Communicator { return bm.comm }

// Log returns the controller logger for payload diagnostics.
func (bm *Controller[S, D]) Log() *zap.Logger { return bm.log }

// AddTimings appends per-repetition measurements in seconds under a label.
func (bm *Controller[S, D]) AddTimings(label string, seconds []float64) {
	bm.timings[label] = append(bm.timings[label], seconds...)
	metrics.KernelRepetitions.WithLabelValues(bm.payload.Name(), label).Add(float64(len(seconds)))
}

// Timings returns the measurements recorded under a label, in insertion
// order.
func (bm *Controller[S, D]) Timings(label string) []float64 {
	return bm.timings[label]
}

// SetResult stores a derived result under a metric name.
func (bm *Controller[S, D]) SetResult(name string, r Result) {
	bm.results[name] = r
	metrics.ResultValue.WithLabelValues(bm.payload.Name(), name, r.Unit).Set(r.Value)
}

// Result returns a stored result.
func (bm *Controller[S, D]) Result(name string) (Result, bool) {
	r, ok := bm.results[name]
	return r, ok
}

// SetError stores a validation error metric under a name.
func (bm *Controller[S, D]) SetError(name string, r Result) {
	bm.errors[name] = r
}

// Error returns a stored validation error metric.
func (bm *Controller[S, D]) Error(name string) (Result, bool) {
	r, ok := bm.errors[name]
	return r, ok
}

// Validated reports the outcome of the validation phase.
func (bm *Controller[S, D]) Validated() bool { return bm.validated }

// HelpShown reports that argument parsing ended in help or version output.
func (bm *Controller[S, D]) HelpShown() bool { return bm.helpShown }

// Out returns the report stream, Err the diagnostic stream. Payload print
// hooks write to these.
func (bm *Controller[S, D]) Out() io.Writer { return bm.out }
func (bm *Controller[S, D]) Err() io.Writer { return bm.errw }

// Execute runs the benchmark lifecycle: generate input, execute the kernel,
// validate, collect and report. It refuses to run without a successful Setup
// and returns whether the output was validated.
func (bm *Controller[S, D]) Execute() bool {
	if !bm.setupOK {
		fmt.Fprintln(bm.errw, "Benchmark execution started without successfully running the benchmark setup!")
		bm.log.Error("execute called before setup", zap.Error(ErrSetupRequired))
		return false
	}
	base := bm.exec.Settings.Base()
	if base.TestOnly {
		if bm.comm.Rank() == 0 {
			fmt.Fprintln(bm.out, "TEST MODE ENABLED: SKIP DATA GENERATION, EXECUTION, AND VALIDATION!")
			fmt.Fprintln(bm.out, "SUCCESSFULLY parsed input parameters!")
		}
		return true
	}

	root := bm.comm.Rank() == 0
	if root {
		fmt.Fprint(bm.out, hline+"Start benchmark using the given configuration. Generating data...\n"+hline)
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PayloadError{Phase: "execution", Err: fmt.Errorf("panic: %v", r)}
			}
		}()

		genStart := bm.now()
		data, err := bm.payload.GenerateInput(bm)
		if err != nil {
			return &PayloadError{Phase: "generate", Err: err}
		}
		genTime := bm.now().Sub(genStart)
		bm.observePhase("generate", genTime)

		if err := bm.comm.Barrier(); err != nil {
			return fmt.Errorf("barrier after data generation: %w", err)
		}

		if root {
			fmt.Fprintf(bm.out, "Generation Time: %g s\n", genTime.Seconds())
			fmt.Fprint(bm.out, hline+"Execute benchmark kernel...\n"+hline)
		}

		exeStart := bm.now()
		if err := bm.payload.ExecuteKernel(bm, data); err != nil {
			return &PayloadError{Phase: "execute", Err: err}
		}
		if err := bm.comm.Barrier(); err != nil {
			return fmt.Errorf("barrier after kernel execution: %w", err)
		}
		exeTime := bm.now().Sub(exeStart)
		bm.observePhase("execute", exeTime)

		if root {
			fmt.Fprintf(bm.out, "Execution Time: %g s\n", exeTime.Seconds())
			fmt.Fprint(bm.out, hline+"Validate output...\n"+hline)
		}

		if !base.SkipValidation {
			valStart := bm.now()
			validated, err := bm.payload.ValidateOutput(bm, data)
			if err != nil {
				return &PayloadError{Phase: "validate", Err: err}
			}
			bm.validated = validated
			if root {
				bm.payload.PrintError(bm)
			}
			valTime := bm.now().Sub(valStart)
			bm.observePhase("validate", valTime)
			if root {
				fmt.Fprintf(bm.out, "Validation Time: %g s\n", valTime.Seconds())
			}
		}

		// intentionally unconditional on all ranks
		fmt.Fprint(bm.out, hline+"Collect results...\n"+hline)
		if err := bm.payload.CollectResults(bm); err != nil {
			return &PayloadError{Phase: "collect", Err: err}
		}

		if root {
			bm.report(base)
		}
		return nil
	}()
	if err != nil {
		fmt.Fprintln(bm.errw, "An error occurred while executing the benchmark:")
		fmt.Fprintf(bm.errw, "\t%v\n", err)
		bm.log.Error("benchmark execution failed", zap.Error(err))
		return false
	}

	bm.countVerdict(base.SkipValidation)
	return bm.validated
}

// report persists and renders the run outcome on the root rank.
func (bm *Controller[S, D]) report(base *BaseSettings) {
	if base.DumpFile != "" {
		if err := bm.dumpRecord(base.DumpFile); err != nil {
			fmt.Fprintln(bm.out, "Unable to open file for dumping configuration and results")
			bm.log.Warn("run record dump failed", zap.String("path", base.DumpFile), zap.Error(err))
		}
	}
	if base.PromFile != "" {
		if err := metrics.WriteTextfile(base.PromFile); err != nil {
			bm.log.Warn("metrics textfile dump failed", zap.String("path", base.PromFile), zap.Error(err))
		}
	}

	bm.payload.PrintResults(bm)

	switch {
	case base.SkipValidation:
		fmt.Fprint(bm.out, hline)
		fmt.Fprintln(bm.out, yellow("VALIDATION SKIPPED!"))
	case bm.validated:
		fmt.Fprint(bm.out, hline)
		fmt.Fprintln(bm.out, green("Validation: SUCCESS!"))
	default:
		fmt.Fprint(bm.errw, hline)
		fmt.Fprintln(bm.errw, red("ERROR: VALIDATION OF OUTPUT DATA FAILED!"))
	}
}

func (bm *Controller[S, D]) observePhase(phase string, d time.Duration) {
	metrics.PhaseDuration.WithLabelValues(bm.payload.Name(), phase).Observe(d.Seconds())
}

func (bm *Controller[S, D]) countVerdict(skipped bool) {
	verdict := "failed"
	switch {
	case skipped:
		verdict = "skipped"
	case bm.validated:
		verdict = "success"
	}
	metrics.ValidationVerdicts.WithLabelValues(bm.payload.Name(), verdict).Inc()
}

// Close releases the execution context and, when the controller resolved the
// process group itself, closes it. Borrowed groups stay open.
func (bm *Controller[S, D]) Close() error {
	var errs []error
	if bm.exec != nil {
		if err := bm.exec.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if bm.ownsComm {
		if err := bm.comm.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
