//go:build linux && !tinygo

// Command rpi runs the call bell appliance on a Raspberry Pi, with the display and
// button on the header GPIOs and the wireless module on the primary UART.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"periph.io/x/host/v3"

	"callbell/appliance"
	"callbell/appliance/config"
	"callbell/core"
	"callbell/host/serial"
	"callbell/link"
)

var (
	configPath = flag.String("config", "", "JSON appliance config (defaults when empty)")
	device     = flag.String("device", "/dev/serial0", "Serial device of the wireless module")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	core.SetDebugWriter(func(msg string) { glog.Info(msg) })

	if _, err := host.Init(); err != nil {
		glog.Exitf("periph init: %v", err)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			glog.Exitf("read config: %v", err)
		}
		if cfg, err = config.LoadConfig(data); err != nil {
			glog.Exitf("config: %v", err)
		}
	}

	port, err := serial.Open(serial.DefaultConfig(*device))
	if err != nil {
		glog.Exitf("open %s: %v", *device, err)
	}
	stream := link.NewStream(port)
	defer stream.Close()

	app, err := appliance.NewApplianceWithConfig(cfg)
	if err != nil {
		glog.Exitf("appliance: %v", err)
	}
	if err := app.Initialize(NewPeriphGPIODriver(), stream); err != nil {
		glog.Exitf("initialize: %v", err)
	}
	if err := app.Start(); err != nil {
		core.DumpEventRing()
		glog.Exitf("start: %v", err)
	}
	glog.Infof("call bell ready on %s", *device)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.Run(ctx)
	app.Stop()
	glog.Info("stopped")
}
