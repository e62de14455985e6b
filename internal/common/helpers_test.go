package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0.00000000"},
		{1, "0.00000001"},
		{100000000, "1.00000000"},
		{2498183600, "24.98183600"},
		{18446744073709551615, "184467440737.09551615"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.in))
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"1", 100000000, false},
		{"0.5", 50000000, false},
		{".5", 50000000, false},
		{"3.", 300000000, false},
		{" 24.981836 ", 2498183600, false},
		{"0.00000001", 1, false},
		{"184467440737.09551615", 18446744073709551615, false},
		{"184467440737.09551616", 0, true},
		{"999999999999999", 0, true},
		{"0.000000001", 0, true},
		{"", 0, true},
		{".", 0, true},
		{"1.2.3", 0, true},
		{"-1", 0, true},
		{"1e5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePositiveAmount(t *testing.T) {
	_, err := ParsePositiveAmount("0.0")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	v, err := ParsePositiveAmount("0.1")
	require.NoError(t, err)
	assert.Equal(t, uint64(10000000), v)
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 7, 123456789, 100000000000} {
		got, err := ParseAmount(FormatAmount(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}
