// Command callbell-sim runs the call bell appliance against simulated hardware.
//
//	callbell-sim
//	callbell-sim -e press
//	callbell-sim -config sim.yaml -realtime
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	apcfg "callbell/appliance/config"
	"callbell/core"
	"callbell/host/config"
	"callbell/host/sh"
)

var (
	configPath = flag.String("config", "", "YAML settings file")
	realtime   = flag.Bool("realtime", false, "Sleep for real instead of using a virtual clock")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, rt, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s, err := newSimulator(cfg, *realtime || rt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	shell := sh.New("callbell> ", s, commands()...)
	core.SetDebugWriter(func(msg string) { shell.Printf("%s\n", msg) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: appliance failed to start: %v\n", err)
		core.DumpEventRing()
		os.Exit(1)
	}

	if err := shell.Run(flag.Args()...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig returns the appliance settings and whether the settings file asks for
// realtime mode.
func loadConfig() (*apcfg.Config, bool, error) {
	host, err := config.Parse(nil)
	if *configPath != "" {
		host, err = config.Load(*configPath)
	}
	if err != nil {
		return nil, false, err
	}

	if host.Sim.Appliance == "" {
		return apcfg.DefaultConfig(), host.Sim.Realtime, nil
	}
	data, err := os.ReadFile(host.Sim.Appliance)
	if err != nil {
		return nil, false, fmt.Errorf("read appliance config: %w", err)
	}
	cfg, err := apcfg.LoadConfig(data)
	return cfg, host.Sim.Realtime, err
}
