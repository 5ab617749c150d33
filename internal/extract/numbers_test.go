package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseShareCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		ok       bool
	}{
		{"1,234,567", 1234567, true},
		{"500000", 500000, true},
		{"  42  ", 42, true},
		{"1,000,000(2)", 1000000, true},
		{"-", 0, false},
		{"—", 0, false},
		{"*", 0, false},
		{"N/A", 0, false},
		{"", 0, false},
		{"shares", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseShareCount(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.expected, got, "input %q", tt.input)
	}
}

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"5.5%", 5.5, true},
		{"12.3 %", 12.3, true},
		{"7 percent", 7, true},
		{"8.1", 8.1, true},
		{"Less than 1%", 0.5, true},
		{"less than 5%", 2.5, true},
		{"*1", 0.5, true},
		{"-", 0, false},
		{"—", 0, false},
		{"", 0, false},
		{"1,234,567", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePercentage(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.InDelta(t, tt.expected, got, 0.001, "input %q", tt.input)
	}
}
