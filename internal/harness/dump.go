package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/accelbench/accelbench/internal/buildinfo"
	"github.com/accelbench/accelbench/internal/keys"
	"github.com/accelbench/accelbench/pkg/runrecord"
)

// timeLayout matches the classic ctime-style stamp of benchmark logs.
const timeLayout = "Mon Jan 02 15:04:05 MST 2006"

// boolSettings are the printable-map keys whose Yes/No values become JSON
// booleans in run records. Membership is exact; unknown keys keep their
// string value.
var boolSettings = map[string]struct{}{
	"Emulate":             {},
	"Test Mode":           {},
	"Memory Interleaving": {},
	"Replicate Inputs":    {},
	"Inverse":             {},
	"Diagonally Dominant": {},
	"Dist. Buffers":       {},
}

// torusKey holds a process grid extent like "P=2, Q=3"; run records decompose
// it into its two factors.
const torusKey = "FPGA Torus"

// coerceSetting maps one printable setting to its run-record value: integers
// stay numeric, the torus extent becomes a P/Q object, known flags become
// booleans and everything else stays the literal string.
func coerceSetting(key, value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if key == torusKey {
		if p, q, ok := parseTorus(value); ok {
			return map[string]int{"P": p, "Q": q}
		}
	}
	if _, ok := boolSettings[key]; ok {
		return value == "Yes"
	}
	return value
}

func parseTorus(value string) (p, q int, ok bool) {
	if n, err := fmt.Sscanf(value, "P=%d, Q=%d", &p, &q); err == nil && n == 2 {
		return p, q, true
	}
	return 0, 0, false
}

// buildRecord assembles the run record of this run.
func (bm *Controller[S, D]) buildRecord() *runrecord.Record {
	settingsMap := bm.exec.Settings.Map()
	settings := make(map[string]any, len(settingsMap)+1)
	for key, value := range settingsMap {
		settings[key] = coerceSetting(key, value)
	}
	settings["Ranks"] = bm.comm.Size()

	timings := make(map[string][]runrecord.Value, len(bm.timings))
	for label, seconds := range bm.timings {
		values := make([]runrecord.Value, 0, len(seconds))
		for _, s := range seconds {
			values = append(values, runrecord.Value{Unit: "s", Value: s})
		}
		timings[label] = values
	}

	results := make(map[string]runrecord.Value, len(bm.results))
	for name, r := range bm.results {
		results[name] = runrecord.Value{Unit: r.Unit, Value: r.Value}
	}
	errorValues := make(map[string]runrecord.Value, len(bm.errors))
	for name, r := range bm.errors {
		errorValues[name] = runrecord.Value{Unit: r.Unit, Value: r.Value}
	}

	record := &runrecord.Record{
		Name:          bm.payload.Name(),
		ConfigTime:    buildinfo.ConfigTime,
		ExecutionTime: bm.now().Format(timeLayout),
		GitCommit:     buildinfo.GitCommit,
		Version:       buildinfo.Version,
		Device:        bm.exec.DeviceName(),
		Settings:      settings,
		Timings:       timings,
		Results:       results,
		Errors:        errorValues,
		Validated:     bm.validated,
		Environment: map[string]string{
			"LD_LIBRARY_PATH": os.Getenv("LD_LIBRARY_PATH"),
		},
	}
	if bm.comm.Size() > 1 {
		record.Comm = &runrecord.CommInfo{WorldSize: bm.comm.Size(), Transport: bm.comm.Transport()}
	}
	return record
}

// dumpRecord writes the run record and, when a signing key is configured,
// its detached signature.
func (bm *Controller[S, D]) dumpRecord(path string) error {
	data, err := json.MarshalIndent(bm.buildRecord(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	keyFile := bm.exec.Settings.Base().SignKeyFile
	if keyFile == "" {
		return nil
	}
	privateKey, _, err := keys.LoadPrivateKey(keyFile)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}
	sig, err := keys.SignRecord(privateKey, data)
	if err != nil {
		return err
	}
	return keys.WriteSignature(path, sig)
}
