// Command callbell-responder answers call bell sessions over a serial port.
//
//	callbell-responder -device /dev/ttyUSB0
//	callbell-responder -config responder.yaml -v 2
//	callbell-responder -mqtt mqtt://broker.local:1883/callbell
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"callbell/host/bridge"
	"callbell/host/config"
	"callbell/host/responder"
	"callbell/host/serial"
	"callbell/host/sh"
	"callbell/link"
)

var (
	configPath = flag.String("config", "", "YAML settings file")
	device     = flag.String("device", "", "Serial device path (overrides the settings file)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides the settings file)")
	broker     = flag.String("mqtt", "", "MQTT broker URL to mirror calls to (overrides the settings file)")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	port, err := serial.Open(cfg.Serial())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open %s: %v\n", cfg.Link.Device, err)
		os.Exit(1)
	}
	stream := link.NewStream(port)
	defer stream.Close()

	r := responder.New(stream, optionsFrom(cfg))
	shell := sh.New("responder> ", r, commands()...)

	var br *bridge.Bridge
	if cfg.MQTT.Broker != "" {
		b, client, err := bridge.Connect(cfg.MQTT.Broker, r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", cfg.MQTT.Broker, err)
			os.Exit(1)
		}
		defer client.Disconnect(250)
		br = b
		r.OnReply(br.Answered)
	}
	r.OnCall(func(c responder.Call) {
		shell.Printf("\n*** call %d: reply within %v\n", c.Seq, cfg.ReplyWindow())
		if br != nil {
			br.Announce(c)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			glog.Errorf("responder stopped: %v", err)
		}
	}()

	glog.Infof("listening on %s at %d baud", cfg.Link.Device, cfg.Link.Baud)
	if err := shell.Run(flag.Args()...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, err
	}
	if *device != "" {
		cfg.Link.Device = *device
	}
	if *baud != 0 {
		cfg.Link.Baud = *baud
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	return cfg, nil
}

func optionsFrom(cfg *config.Config) responder.Options {
	opts := responder.DefaultOptions()
	opts.CallByte = byte(cfg.Responder.CallByte)
	opts.Window = cfg.ReplyWindow()
	opts.Codes = make(map[byte]string, len(cfg.Responder.Codes))
	for code, label := range cfg.Responder.Codes {
		opts.Codes[byte(code)] = label
	}
	if cfg.Responder.AutoReply != nil {
		code := byte(*cfg.Responder.AutoReply)
		opts.AutoReply = &code
		opts.AutoReplyDelay = cfg.AutoReplyDelay()
	}
	return opts
}
