package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceSetting(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected any
	}{
		{"integer", "Repetitions", "10", 10},
		{"negative integer", "Device", "-1", -1},
		{"torus extent", "FPGA Torus", "P=2, Q=3", map[string]int{"P": 2, "Q": 3}},
		{"malformed torus stays literal", "FPGA Torus", "2x3", "2x3"},
		{"flag yes", "Test Mode", "Yes", true},
		{"flag no", "Memory Interleaving", "No", false},
		{"abbreviated flag key", "Dist. Buffers", "Yes", true},
		{"unknown key keeps literal yes", "Distribute Buffers", "Yes", "Yes"},
		{"plain string", "Kernel File", "stream_kernels_pcie.aocx", "stream_kernels_pcie.aocx"},
		{"numeric flag value wins as number", "Emulate", "1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, coerceSetting(tt.key, tt.value))
		})
	}
}

func TestParseTorus(t *testing.T) {
	p, q, ok := parseTorus("P=4, Q=2")
	assert.True(t, ok)
	assert.Equal(t, 4, p)
	assert.Equal(t, 2, q)

	_, _, ok = parseTorus("P=4 Q=2")
	assert.False(t, ok)

	_, _, ok = parseTorus("")
	assert.False(t, ok)
}
