// Command tello-sim emulates the drone's serial adapter on a serial device.
// With -virtual it creates a socat PTY pair first and serves one end; point
// tello at the other. SIGHUP re-reads the sim section of the config.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"tellolink/internal/core"
	"tellolink/internal/device"
	"tellolink/internal/model"
	"tellolink/internal/sim"
	"tellolink/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.yml or .toml)")
	dev := flag.String("dev", "", "serial device to serve, overrides sim.port")
	virtual := flag.Bool("virtual", false, "create a socat pair linking sim.port and sim.peer")
	noExpansion := flag.Bool("no-expansion", false, "answer EXT commands with an error")
	flag.Parse()

	cfg, err := core.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	util.InitLogger("tello-sim", cfg.Log.Level, cfg.Log.Console)

	if err := run(cfg, *cfgPath, *dev, *virtual, *noExpansion); err != nil {
		util.Error("simulator: %v", err)
		os.Exit(1)
	}
}

func run(cfg model.Config, cfgPath, dev string, virtual, noExpansion bool) error {
	sc := cfg.Sim
	if dev != "" {
		sc.Port = dev
	}
	if sc.Port == "" {
		sc.Port = "/tmp/ttyTELLO_SIM"
	}

	if virtual {
		peer := sc.Peer
		if peer == "" {
			peer = "/tmp/ttyTELLO"
		}
		socat := util.NewSocatManager()
		defer socat.Cleanup()
		if err := socat.CreatePair(sc.Port, peer, 3*time.Second); err != nil {
			return fmt.Errorf("virtual serial pair: %w", err)
		}
		util.Info("connect tello to %s", peer)
	}

	port, err := device.OpenRaw(sc.Port, cfg.Drone.Baud, 50*time.Millisecond)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := port.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close sim port")
		}
	}()

	r := sim.NewResponder(stateOf(sc))
	r.Expanded = !noExpansion

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				next, err := core.LoadConfig(cfgPath)
				if err != nil {
					util.Error("reload %s: %v", cfgPath, err)
					continue
				}
				r.SetState(stateOf(next.Sim))
				util.Info("sim state reloaded: battery=%d speed=%.1f distance=%d",
					next.Sim.Battery, next.Sim.Speed, next.Sim.Distance)
			}
		}
	}()

	util.Info("simulator serving on %s (battery %d%%)", sc.Port, sc.Battery)
	return r.Serve(ctx, port)
}

func stateOf(sc model.SimConfig) sim.State {
	return sim.State{Battery: sc.Battery, Speed: sc.Speed, Distance: sc.Distance}
}
