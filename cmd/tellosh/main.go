// Command tellosh is an interactive console for a serial-attached drone.
// Arguments, when given, are run as a single command instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"tellolink/internal/core"
	"tellolink/internal/model"
	"tellolink/internal/shell"
	"tellolink/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.yml or .toml)")
	port := flag.String("port", "", "serial device, overrides config")
	connect := flag.Bool("connect", false, "connect on start")
	asJSON := flag.Bool("json", false, "print results as JSON")
	flag.Parse()

	cfg, err := core.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *port != "" {
		cfg.Drone.Port = *port
	}
	// info logs would interleave with the prompt
	if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	util.InitLogger("tellosh", cfg.Log.Level, cfg.Log.Console)

	if err := run(cfg, *asJSON, *connect, flag.Args()); err != nil {
		util.Error("tellosh: %v", err)
		os.Exit(1)
	}
}

func run(cfg model.Config, asJSON, connect bool, args []string) error {
	console := shell.NewConsole(cfg)
	console.OutputJSON = asJSON
	sh := shell.New(console)
	defer sh.Close()

	if connect || len(args) > 0 {
		if err := console.Connect(context.Background(), ""); err != nil {
			return fmt.Errorf("connect %s: %w", cfg.Drone.Port, err)
		}
	}
	return sh.Run(args...)
}
