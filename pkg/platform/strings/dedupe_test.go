package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddresses(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "trims and lowercases",
			input:    []string{"  Admin@Village.gov  "},
			expected: []string{"admin@village.gov"},
		},
		{
			name:     "removes case-insensitive duplicates preserving order",
			input:    []string{"b@x.io", "A@x.io", "B@X.IO", "a@x.io"},
			expected: []string{"b@x.io", "a@x.io"},
		},
		{
			name:     "drops non-addresses",
			input:    []string{"", "  ", "nobody", "@x.io", "x@", "a b@x.io", "<a@x.io>"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddresses(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"+1 (555) 010-2030", "+15550102030"},
		{"555.010.2030", "5550102030"},
		{"  +447700900123 ", "+447700900123"},
		{"12345", ""},
		{"555-CALL-NOW", ""},
		{"1+5550102030", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizePhones(t *testing.T) {
	got := NormalizePhones([]string{"+1 555 010 2030", "+15550102030", "bad", "555-010-9999"})
	assert.Equal(t, []string{"+15550102030", "5550109999"}, got)
}
