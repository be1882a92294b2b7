//go:build rp2040 || rp2350

package main

import (
	"machine"
)

var debugReady bool

// InitDebug configures USB CDC for debug output. TinyGo sets up the descriptors.
func InitDebug() {
	if err := machine.Serial.Configure(machine.UARTConfig{}); err != nil {
		return
	}
	debugReady = true
}

// DebugPrintln writes a string to USB CDC with newline
func DebugPrintln(s string) {
	if !debugReady {
		return
	}
	machine.Serial.Write([]byte(s))
	machine.Serial.Write([]byte("\r\n"))
}
