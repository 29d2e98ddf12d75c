// Command tello-bridge holds one drone session and exposes it over
// websocket: each message is a script line, each reply a JSON result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tellolink/internal/bridge"
	"tellolink/internal/core"
	"tellolink/internal/model"
	"tellolink/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.yml or .toml)")
	addr := flag.String("addr", "", "listen address, overrides bridge.addr")
	port := flag.String("port", "", "serial device, overrides config")
	flag.Parse()

	cfg, err := core.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Bridge.Addr = *addr
	}
	if *port != "" {
		cfg.Drone.Port = *port
	}
	util.InitLogger("tello-bridge", cfg.Log.Level, cfg.Log.Console)

	if err := run(cfg); err != nil {
		util.Error("bridge: %v", err)
		os.Exit(1)
	}
}

func run(cfg model.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sys := core.NewSystem(cfg)
	if err := sys.Start(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Drone.Port, err)
	}
	defer func() { _ = sys.Stop() }()

	drone, err := sys.Drone()
	if err != nil {
		return err
	}

	srv := bridge.NewServer(cfg.Bridge.Addr, drone)
	defer srv.Stop()
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case <-ctx.Done():
		util.Info("shutting down")
		return nil
	case err := <-errc:
		return err
	}
}
