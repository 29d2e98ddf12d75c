// Command tello connects to a drone through its serial adapter and runs a
// mission: script lines from -script, from the arguments, or from stdin.
//
//	tello -port /dev/ttyUSB0 takeoff "go 100 0 0 50" land
//	tello -script mission.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"tellolink/internal/core"
	"tellolink/internal/device"
	"tellolink/internal/model"
	"tellolink/internal/tello"
	"tellolink/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.yml or .toml)")
	port := flag.String("port", "", "serial device, overrides config")
	expansion := flag.Bool("expansion", false, "use the expansion-board endpoint (connect_2)")
	script := flag.String("script", "", "script file, - for stdin")
	list := flag.Bool("list", false, "list serial ports and exit")
	level := flag.String("log", "", "log level, overrides config")
	flag.Parse()

	if *list {
		ports, err := device.ListPorts()
		if err != nil {
			fmt.Fprintln(os.Stderr, "list ports:", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := core.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *port != "" {
		cfg.Drone.Port = *port
	}
	if *expansion {
		cfg.Drone.Expansion = true
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	util.InitLogger("tello", cfg.Log.Level, cfg.Log.Console)

	if err := run(cfg, *script, flag.Args()); err != nil {
		util.Error("tello: %v", err)
		os.Exit(1)
	}
}

func run(cfg model.Config, script string, lines []string) error {
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

	var src io.Reader
	switch {
	case script == "-":
		src = os.Stdin
	case script != "":
		f, err := os.Open(script)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		src = f
	case len(lines) > 0:
		src = strings.NewReader(strings.Join(lines, "\n"))
	default:
		src = os.Stdin
	}

	err = drone.RunScript(ctx, src, func(r tello.Result) {
		if r.Value != nil {
			fmt.Printf("%s: %v\n", r.Line, r.Value)
			return
		}
		util.Info("%s: ok", r.Line)
	})
	if err != nil {
		// land rather than hover after a failed line
		if lerr := drone.Land(); lerr != nil {
			log.Warn().Err(lerr).Msg("land after failure")
		}
		return fmt.Errorf("mission aborted: %w", err)
	}
	return nil
}
