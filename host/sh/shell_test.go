package sh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByte(t *testing.T) {
	tests := []struct {
		in   string
		want byte
		ok   bool
	}{
		{"1", 1, true},
		{"0x1F", 0x1F, true},
		{"255", 255, true},
		{"256", 0, false},
		{"-1", 0, false},
		{"coming", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseByte(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}
