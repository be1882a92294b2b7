package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDevice, cfg.Link.Device)
	assert.Equal(t, 9600, cfg.Link.Baud)
	assert.Equal(t, 100, cfg.Link.ReadTimeoutMs)
	assert.Equal(t, DefaultCallByte, cfg.Responder.CallByte)
	assert.Equal(t, 20*time.Second, cfg.ReplyWindow())
	assert.Equal(t, DefaultCodes(), cfg.Responder.Codes)
	assert.Nil(t, cfg.Responder.AutoReply)
}

func TestParseFull(t *testing.T) {
	data := `
link:
  device: /dev/serial0
  baud: 19200
responder:
  reply_window_ms: 5000
  auto_reply: 3
  auto_reply_delay_ms: 1500
  codes:
    3: "ON MY WAY"
    4: "BUSY"
sim:
  appliance: bell.json
  realtime: true
mqtt:
  broker: mqtt://broker.local:1883/door
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "/dev/serial0", cfg.Serial().Device)
	assert.Equal(t, 19200, cfg.Serial().Baud)
	assert.Equal(t, 5*time.Second, cfg.ReplyWindow())
	require.NotNil(t, cfg.Responder.AutoReply)
	assert.Equal(t, 3, *cfg.Responder.AutoReply)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutoReplyDelay())
	assert.Equal(t, map[int]string{3: "ON MY WAY", 4: "BUSY"}, cfg.Responder.Codes)
	assert.Equal(t, "bell.json", cfg.Sim.Appliance)
	assert.True(t, cfg.Sim.Realtime)
	assert.Equal(t, "mqtt://broker.local:1883/door", cfg.MQTT.Broker)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("link:\n  speed: 9600\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	code := func(v int) *int { return &v }

	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"zero", Config{}, true},
		{"negative baud", Config{Link: LinkConfig{Baud: -1}}, false},
		{"call byte range", Config{Responder: ResponderConfig{CallByte: 300}}, false},
		{"code equal to call byte", Config{Responder: ResponderConfig{Codes: map[int]string{1: "X"}}}, true},
		{"code range", Config{Responder: ResponderConfig{Codes: map[int]string{256: "X"}}}, false},
		{"code without label", Config{Responder: ResponderConfig{Codes: map[int]string{3: ""}}}, false},
		{"mqtt broker", Config{MQTT: MQTTConfig{Broker: "mqtt://localhost:1883/callbell"}}, true},
		{"mqtt broker without host", Config{MQTT: MQTTConfig{Broker: "callbell"}}, false},
		{"auto reply default code", Config{Responder: ResponderConfig{AutoReply: code(2)}}, true},
		{"auto reply unknown", Config{Responder: ResponderConfig{AutoReply: code(9)}}, false},
		{"auto reply custom", Config{Responder: ResponderConfig{
			AutoReply: code(5), Codes: map[int]string{5: "OK"},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "callbell.yaml")
	require.NoError(t, os.WriteFile(path, []byte("link:\n  device: COM3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "COM3", cfg.Link.Device)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
