// host/config/validate.go
package config

import (
	"fmt"
	"net/url"
)

// Validate checks configuration correctness.
// Zero values are allowed and mean "use the default"; Validate does not mutate.
func Validate(cfg *Config) error {
	if cfg.Link.Baud < 0 {
		return fmt.Errorf("link: baud must be positive, got %d", cfg.Link.Baud)
	}
	if cfg.Link.ReadTimeoutMs < 0 {
		return fmt.Errorf("link: read_timeout_ms must not be negative")
	}

	r := cfg.Responder
	if r.CallByte < 0 || r.CallByte > 0xFF {
		return fmt.Errorf("responder: call_byte %d out of range", r.CallByte)
	}
	if r.ReplyWindowMs < 0 || r.AutoReplyDelayMs < 0 {
		return fmt.Errorf("responder: durations must not be negative")
	}

	// codes travel the other direction, so they may equal call_byte
	for code, label := range r.Codes {
		if code < 0 || code > 0xFF {
			return fmt.Errorf("responder: code %d out of range", code)
		}
		if label == "" {
			return fmt.Errorf("responder: code %d has no label", code)
		}
	}

	// auto reply is opt-in and must name a known code
	if r.AutoReply != nil {
		code := *r.AutoReply
		if len(r.Codes) > 0 {
			if _, ok := r.Codes[code]; !ok {
				return fmt.Errorf("responder: auto_reply %d is not a configured code", code)
			}
		} else if _, ok := DefaultCodes()[code]; !ok {
			return fmt.Errorf("responder: auto_reply %d is not a default code", code)
		}
	}

	if b := cfg.MQTT.Broker; b != "" {
		u, err := url.Parse(b)
		if err != nil {
			return fmt.Errorf("mqtt: broker: %w", err)
		}
		if u.Host == "" {
			return fmt.Errorf("mqtt: broker %q has no host", b)
		}
	}
	return nil
}
