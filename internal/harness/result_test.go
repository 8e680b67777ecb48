package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultString(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected string
	}{
		{"fractional seconds", NewResult(0.125, "s"), "      0.125 s       "},
		{"bandwidth", NewResult(75.4, "GB/s"), "       75.4 GB/s    "},
		{"zero error", NewResult(0, "epsilon"), "          0 epsilon "},
		{"wide value", NewResult(123456.789, "GFLOP/s"), " 123456.789 GFLOP/s "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.String())
		})
	}
}

func TestHlineWidth(t *testing.T) {
	assert.Equal(t, strings.Repeat("-", 61)+"\n", hline)
}
