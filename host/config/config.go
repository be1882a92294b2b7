// host/config/config.go
package config

// Config is the settings file shared by the desktop tools.
type Config struct {
	Link      LinkConfig      `yaml:"link"`
	Responder ResponderConfig `yaml:"responder"`
	Sim       SimConfig       `yaml:"sim"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// ---- LINK ----

type LinkConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- RESPONDER ----

type ResponderConfig struct {
	CallByte      int `yaml:"call_byte"`
	ReplyWindowMs int `yaml:"reply_window_ms"`

	// Auto reply (optional, opt-in)
	AutoReply        *int `yaml:"auto_reply"`
	AutoReplyDelayMs int  `yaml:"auto_reply_delay_ms"`

	Codes map[int]string `yaml:"codes"` // reply code => label
}

// ---- SIMULATOR ----

type SimConfig struct {
	Appliance string `yaml:"appliance"` // JSON appliance config; empty => defaults
	Realtime  bool   `yaml:"realtime"`  // sleep for real instead of a virtual clock
}

// ---- MQTT BRIDGE ----

type MQTTConfig struct {
	Broker string `yaml:"broker"` // mqtt://[user:pass@]host:port/prefix; empty => disabled
}
