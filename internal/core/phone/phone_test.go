package phone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"555-123-4567", "5551234567"},
		{"(555) 123 4567 ext 89", "5551234567"},
		{"+1 555 123 4567", "1555123456"},
		{"abc", ""},
		{"12", "12"},
		{"٣٤٥", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, Mask(tt.in))
		})
	}
}

func TestMaskIsIdempotent(t *testing.T) {
	once := Mask("+44 (0) 20-7946-0958")
	require.Equal(t, once, Mask(once))
}

func TestDisplay(t *testing.T) {
	require.Equal(t, "(555) 123-4567", Display("555.123.4567"))
	require.Equal(t, "12345", Display("12345"))
	require.True(t, Complete("555 123 4567"))
	require.False(t, Complete("555 123"))
}
