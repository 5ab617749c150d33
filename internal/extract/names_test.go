package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPersonName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "John Smith", "John Smith"},
		{"trailing comma", "John Smith,", "John Smith"},
		{"enumeration prefix", "1. John Smith", "John Smith"},
		{"parenthetical age", "John Smith (52)", "John Smith"},
		{"former role", "John Smith (former)", "John Smith"},
		{"trailing footnote marker", "John Smith(1)", "John Smith"},
		{"asterisk footnote", "John Smith*", "John Smith"},
		{"whitespace", "  John Smith  ", "John Smith"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanPersonName(tt.input))
		})
	}
}

func TestIsValidPersonName(t *testing.T) {
	valid := []string{
		"John Smith",
		"Mary J. Blige",
		"Timothy D. Cook",
		"Ruth Porat",
		"Luca de Meo",
	}
	for _, name := range valid {
		assert.True(t, IsValidPersonName(name), "expected valid: %q", name)
	}

	invalid := []string{
		"",
		"X",
		"APPLE INC",
		"Acme Corporation",
		"Global Holdings LLC",
		"Chief Executive Officer",
		"Item 5.02",
		"The Board of Directors approved the plan",
		"None",
		"N/A",
		"Total",
		"john smith",
		"A B C D E F G H",
	}
	for _, name := range invalid {
		assert.False(t, IsValidPersonName(name), "expected invalid: %q", name)
	}
}

func TestIsEntityName(t *testing.T) {
	assert.True(t, IsEntityName("Vanguard Group Inc"))
	assert.True(t, IsEntityName("BlackRock, Inc."))
	assert.True(t, IsEntityName("State Street Corporation"))
	assert.True(t, IsEntityName("Acme Holdings LLC"))
	assert.True(t, IsEntityName("Capital Research Fund LP"))

	assert.False(t, IsEntityName("Timothy D. Cook"))
	assert.False(t, IsEntityName("Jane Doe"))
}
