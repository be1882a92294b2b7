package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/serial0")
	assert.Equal(t, "/dev/serial0", cfg.Device)
	assert.Equal(t, 9600, cfg.Baud)
	assert.Equal(t, 100, cfg.ReadTimeout)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, DefaultConfig("").Validate(), ErrNoDevice)

	cfg := DefaultConfig("/dev/ttyUSB0")
	cfg.Baud = 0
	assert.ErrorIs(t, cfg.Validate(), ErrBadBaud)

	cfg = DefaultConfig("/dev/ttyUSB0")
	cfg.ReadTimeout = -1
	assert.Error(t, cfg.Validate())
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)

	_, err = Open(DefaultConfig(""))
	assert.ErrorIs(t, err, ErrNoDevice)
}
