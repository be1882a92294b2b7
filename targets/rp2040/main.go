//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"time"

	"callbell/appliance"
	"callbell/appliance/config"
	"callbell/core"
	"callbell/link"
)

// Wireless module UART pins.
const (
	linkTX = machine.GPIO0
	linkRX = machine.GPIO1
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitDebug()
	core.SetDebugWriter(DebugPrintln)

	gpioDriver := NewRPGPIODriver()
	core.SetGPIODriver(gpioDriver)

	uart := machine.UART0
	err := uart.Configure(machine.UARTConfig{
		BaudRate: core.DefaultBaud,
		TX:       linkTX,
		RX:       linkRX,
	})
	if err != nil {
		fault()
	}

	app, err := appliance.NewApplianceWithConfig(config.DefaultConfig())
	if err != nil {
		fault()
	}
	if err := app.Initialize(core.MustGPIO().(core.InterruptDriver), link.NewUART(uart)); err != nil {
		fault()
	}
	if err := app.Start(); err != nil {
		core.DumpEventRing()
		fault()
	}

	app.Run(context.Background())
}

// fault flashes the LED rapidly forever.
func fault() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
