// Package runrecord defines the persisted outcome of one benchmark run and
// the tooling to read and verify dumped records. Collectors parse these
// documents to build result archives without rerunning anything.
package runrecord

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Value is a measured quantity with its unit.
type Value struct {
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

// CommInfo describes the process group of a distributed run. It is absent
// for single-process runs.
type CommInfo struct {
	WorldSize int    `json:"world_size"`
	Transport string `json:"transport"`
}

// Record is the JSON document a benchmark dumps after a run. Settings values
// are typed by name: counts arrive as numbers, known flags as booleans, grid
// extents as objects and everything else as strings.
type Record struct {
	Name          string             `json:"name"`
	Comm          *CommInfo          `json:"comm,omitempty"`
	ConfigTime    string             `json:"config_time"`
	ExecutionTime string             `json:"execution_time"`
	GitCommit     string             `json:"git_commit"`
	Version       string             `json:"version"`
	Device        string             `json:"device"`
	Settings      map[string]any     `json:"settings"`
	Timings       map[string][]Value `json:"timings"`
	Results       map[string]Value   `json:"results"`
	Errors        map[string]Value   `json:"errors"`
	Validated     bool               `json:"validated"`
	Environment   map[string]string  `json:"environment"`
}

// Parse decodes a run record.
func Parse(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse run record: %w", err)
	}
	if r.Name == "" {
		return nil, errors.New("run record has no benchmark name")
	}
	return &r, nil
}

// Read loads a dumped run record from disk.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// MinTiming returns the smallest recorded value under a timing label, the
// usual best-run view of repeated measurements.
func (r *Record) MinTiming(label string) (float64, bool) {
	values, ok := r.Timings[label]
	if !ok || len(values) == 0 {
		return 0, false
	}
	min := values[0].Value
	for _, v := range values[1:] {
		if v.Value < min {
			min = v.Value
		}
	}
	return min, true
}
