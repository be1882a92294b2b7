package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"callbell/catalog"
	"callbell/core"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"Button": {"Pin": "gpio3"}}`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	pin, edge := cfg.ButtonPin()
	if pin != 3 || edge != core.EdgeFalling {
		t.Errorf("Expected button gpio3 falling, got %d/%d", pin, edge)
	}
	if cfg.Display.Width != 100 {
		t.Errorf("Expected width 100, got %d", cfg.Display.Width)
	}

	nc := cfg.NotifyConfig()
	if nc.Debounce != 100*time.Millisecond || nc.PollInterval != 500*time.Millisecond {
		t.Errorf("Unexpected debounce/poll interval %v/%v", nc.Debounce, nc.PollInterval)
	}
	if nc.MaxPolls != 40 || nc.Hold != 20*time.Second || nc.NotifyByte != 0x01 {
		t.Errorf("Unexpected polls/hold/byte %d/%v/0x%02X", nc.MaxPolls, nc.Hold, nc.NotifyByte)
	}
	if cfg.StartupDelay() != 500*time.Millisecond || cfg.GraphicSettle() != time.Second {
		t.Errorf("Unexpected start-up timing %v/%v", cfg.StartupDelay(), cfg.GraphicSettle())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	data := `{
		"Display": {"RS": "GPIO20", "BusyPollLimit": 64},
		"Session": {"MaxPolls": 10, "HoldMs": 5000},
		"Messages": {"Default": "RING", "Responses": {"7": "OK"}}
	}`
	cfg, err := LoadConfig([]byte(data))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LCDPins().RS != 20 {
		t.Errorf("Expected RS on 20, got %d", cfg.LCDPins().RS)
	}
	if cfg.LCDConfig().BusyPollLimit != 64 {
		t.Errorf("Expected busy poll limit 64, got %d", cfg.LCDConfig().BusyPollLimit)
	}
	if cfg.NotifyConfig().MaxPolls != 10 || cfg.NotifyConfig().Hold != 5*time.Second {
		t.Error("Expected session overrides to apply")
	}

	cat := cfg.Catalog()
	if m, _ := cat.Message(catalog.Default); m.Label != "RING" {
		t.Errorf("Expected default label RING, got %q", m.Label)
	}
	if m, ok := cat.Response(7); !ok || m.Label != "OK" {
		t.Errorf("Expected code 7 mapped to OK, got %q (ok=%v)", m.Label, ok)
	}
	if _, ok := cat.Response(1); ok {
		t.Error("Expected default responses replaced")
	}
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	if _, err := LoadConfig([]byte(`{"Display":`)); err == nil {
		t.Error("Expected parse error")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Expected default config to validate, got %v", err)
	}

	cfg, err := LoadConfig([]byte(`{}`))
	if err != nil {
		t.Fatalf("Expected empty config to load, got %v", err)
	}
	if cfg.Session.NotifyByte != 0x01 {
		t.Errorf("Expected zero notify byte to select 0x01, got 0x%02X", cfg.Session.NotifyByte)
	}
	if m, ok := cfg.Catalog().Response(1); !ok || m.Label != "COMING NOW" {
		t.Errorf("Expected code 1 to map to COMING NOW, got %q/%v", m.Label, ok)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
		substr string
	}{
		{"default", func(c *Config) {}, nil, ""},
		{"duplicate pin", func(c *Config) { c.Button.Pin = c.Display.EN }, nil, ErrDuplicatePin.Error()},
		{"bad pin", func(c *Config) { c.Display.DB7 = "pa7" }, nil, "invalid pin"},
		{"bad edge", func(c *Config) { c.Button.Edge = "level" }, ErrBadEdge, ""},
		{"wide display", func(c *Config) { c.Display.Width = 200 }, ErrBadWidth, ""},
		{"bad row", func(c *Config) { c.Messages.Row = 2 }, ErrBadRow, ""},
		{"negative polls", func(c *Config) { c.Session.MaxPolls = -1 }, ErrBadTiming, ""},
		{"code equals notify byte", func(c *Config) { c.Messages.Responses = map[string]string{"1": "X"} }, nil, ""},
		{"notify byte out of range", func(c *Config) { c.Session.NotifyByte = 256 }, ErrBadNotify, ""},
		{"negative notify byte", func(c *Config) { c.Session.NotifyByte = -1 }, ErrBadNotify, ""},
		{"code out of range", func(c *Config) { c.Messages.Responses = map[string]string{"300": "X"} }, nil, ErrBadCode.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(c)
			err := c.Validate()

			switch {
			case tt.want == nil && tt.substr == "":
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
			case tt.want != nil:
				if !errors.Is(err, tt.want) {
					t.Errorf("Expected %v, got %v", tt.want, err)
				}
			default:
				if err == nil || !strings.Contains(err.Error(), tt.substr) {
					t.Errorf("Expected error containing %q, got %v", tt.substr, err)
				}
			}
		})
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		in   string
		want core.GPIOPin
		ok   bool
	}{
		{"gpio12", 12, true},
		{"GPIO0", 0, true},
		{" 7 ", 7, true},
		{"gpio", 0, false},
		{"pb3", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePin(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParsePin(%q) = %d, %v", tt.in, got, err)
		}
	}
}
