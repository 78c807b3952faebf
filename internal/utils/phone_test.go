package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		region   string
		expected string
	}{
		{name: "international format", raw: "+55 21 98765-4321", region: "", expected: "+5521987654321"},
		{name: "national with region", raw: "(21) 98765-4321", region: "br", expected: "+5521987654321"},
		{name: "default region", raw: "(201) 555-0123", region: "", expected: "+12015550123"},
		{name: "surrounding spaces", raw: "  +44 121 234 5678 ", region: "US", expected: "+441212345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.region)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizePhone_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "+1 000"} {
		t.Run(raw, func(t *testing.T) {
			_, err := NormalizePhone(raw, "US")
			assert.Error(t, err)
		})
	}
}
