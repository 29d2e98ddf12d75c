// Package shell is the interactive console of tellosh.
package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"

	"tellolink/internal/core"
	"tellolink/internal/device"
	"tellolink/internal/model"
	"tellolink/internal/protocol"
	"tellolink/internal/tello"
)

const (
	consoleKey        = "$console"
	unconnectedPrompt = "[none] > "
)

// DialFunc opens a session for the drone section of the config.
type DialFunc func(ctx context.Context, cfg model.DroneConfig) (*protocol.Session, error)

func dialSerial(ctx context.Context, cfg model.DroneConfig) (*protocol.Session, error) {
	return protocol.Dial(ctx, cfg.Port, cfg.Baud, core.SessionOptions(cfg))
}

// Console holds the connection state behind the shell commands.
type Console struct {
	Config     model.Config
	OutputJSON bool
	Dial       DialFunc

	mu      sync.Mutex
	session *protocol.Session
	drone   *tello.Drone
}

// NewConsole returns a disconnected console dialing real serial ports.
func NewConsole(cfg model.Config) *Console {
	return &Console{Config: cfg, Dial: dialSerial}
}

// Connect opens port, or the configured port when empty, replacing any
// current connection.
func (c *Console) Connect(ctx context.Context, port string) error {
	cfg := c.Config.Drone
	if port != "" {
		cfg.Port = port
	}
	s, err := c.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	old := c.session
	c.session, c.drone = s, tello.New(s)
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Disconnect closes the current connection, if any.
func (c *Console) Disconnect() error {
	c.mu.Lock()
	s := c.session
	c.session, c.drone = nil, nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

// Endpoint is the connected port, empty when disconnected.
func (c *Console) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Endpoint()
}

// Exec runs one catalog line and formats its result for display.
func (c *Console) Exec(line string) (string, error) {
	c.mu.Lock()
	d := c.drone
	c.mu.Unlock()
	if d == nil {
		return "", fmt.Errorf("not connected")
	}
	res, err := d.Exec(line)
	if err != nil {
		return "", err
	}
	if c.OutputJSON {
		b, err := json.Marshal(res)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if res.Value != nil {
		return fmt.Sprint(res.Value), nil
	}
	return "OK", nil
}

// RunFile executes a script file line by line.
func (c *Console) RunFile(ctx context.Context, path string, report func(tello.Result)) error {
	c.mu.Lock()
	d := c.drone
	c.mu.Unlock()
	if d == nil {
		return fmt.Errorf("not connected")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.RunScript(ctx, f, report)
}

// Shell binds a Console to an ishell instance.
type Shell struct {
	Shell   *ishell.Shell
	Console *Console
}

// New creates the interactive shell with connection and catalog commands.
func New(console *Console) *Shell {
	s := &Shell{Shell: ishell.New(), Console: console}
	s.Shell.Set(consoleKey, console)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range connectionCmds() {
		s.Shell.AddCmd(cmd)
	}
	for _, cmd := range catalogCmds() {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// Run processes args as a single command, or starts the interactive loop
// when args is empty.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	s.Shell.Run()
	return nil
}

// Close disconnects and releases the terminal.
func (s *Shell) Close() {
	_ = s.Console.Disconnect()
	s.Shell.Close()
}

func consoleFrom(c *ishell.Context) *Console {
	return c.Get(consoleKey).(*Console)
}

func prompt(endpoint string) string {
	if endpoint == "" {
		return unconnectedPrompt
	}
	return fmt.Sprintf("[%s] > ", endpoint)
}

func connectionCmds() []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name: "connect",
			Help: "connect [PORT] - open the adapter and handshake",
			Func: func(c *ishell.Context) {
				con := consoleFrom(c)
				port := ""
				if len(c.Args) > 0 {
					port = c.Args[0]
				}
				if err := con.Connect(context.Background(), port); err != nil {
					c.Err(err)
					return
				}
				c.SetPrompt(prompt(con.Endpoint()))
				c.Println("connected", con.Endpoint())
			},
		},
		{
			Name: "disconnect",
			Help: "close the current connection",
			Func: func(c *ishell.Context) {
				if err := consoleFrom(c).Disconnect(); err != nil {
					c.Err(err)
				}
				c.SetPrompt(unconnectedPrompt)
			},
		},
		{
			Name: "ports",
			Help: "list serial ports",
			Func: func(c *ishell.Context) {
				ports, err := device.ListPorts()
				if err != nil {
					c.Err(err)
					return
				}
				for _, p := range ports {
					c.Println(p)
				}
			},
		},
		{
			Name: "run",
			Help: "run FILE - execute a script file",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(fmt.Errorf("FILE required"))
					return
				}
				err := consoleFrom(c).RunFile(context.Background(), c.Args[0], func(r tello.Result) {
					if r.Value != nil {
						c.Printf("%s: %v\n", r.Line, r.Value)
					}
				})
				if err != nil {
					c.Err(err)
				}
			},
		},
	}
}

func catalogCmds() []*ishell.Cmd {
	var cmds []*ishell.Cmd
	for _, usage := range tello.Usage {
		for _, alt := range strings.Split(usage, " | ") {
			fields := strings.Fields(alt)
			if len(fields) == 0 {
				continue
			}
			verb := fields[0]
			cmds = append(cmds, &ishell.Cmd{
				Name: verb,
				Help: strings.TrimSpace(alt),
				Func: func(c *ishell.Context) {
					line := strings.Join(append([]string{verb}, c.Args...), " ")
					out, err := consoleFrom(c).Exec(line)
					if err != nil {
						c.Err(err)
						return
					}
					c.Println(out)
				},
			})
		}
	}
	return cmds
}
