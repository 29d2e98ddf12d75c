package util

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SocatManager manages lifecycle of socat-created virtual serial pairs, so
// the simulator can serve one end while a client opens the other.
type SocatManager struct {
	mu     sync.Mutex
	cmds   []*exec.Cmd
	links  []string
	closed bool

	// Binary is the socat executable, "socat" when empty.
	Binary string
}

// NewSocatManager initializes an empty manager.
func NewSocatManager() *SocatManager {
	return &SocatManager{}
}

func pairArgs(left, right string) []string {
	return []string{
		"-d", "-d",
		fmt.Sprintf("pty,raw,echo=0,link=%s", left),
		fmt.Sprintf("pty,raw,echo=0,link=%s", right),
	}
}

// CreatePair starts a socat process linking two PTYs and waits up to wait
// for both links to appear.
func (m *SocatManager) CreatePair(left, right string, wait time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("socat manager closed")
	}

	bin := m.Binary
	if bin == "" {
		bin = "socat"
	}
	cmd := exec.Command(bin, pairArgs(left, right)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start socat: %w", err)
	}
	log.Info().Int("pid", cmd.Process.Pid).Str("left", left).Str("right", right).Msg("virtual serial pair started")

	m.cmds = append(m.cmds, cmd)
	m.links = append(m.links, left, right)

	deadline := time.Now().Add(wait)
	for {
		_, errL := os.Lstat(left)
		_, errR := os.Lstat(right)
		if errL == nil && errR == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("socat links %s, %s not ready after %s", left, right, wait)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// Cleanup stops all socat processes and removes created links.
func (m *SocatManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	for _, cmd := range m.cmds {
		if cmd.Process != nil {
			log.Debug().Int("pid", cmd.Process.Pid).Msg("killing socat")
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	}

	for _, path := range m.links {
		if _, err := os.Lstat(path); err == nil {
			_ = os.Remove(path)
			log.Debug().Str("link", path).Msg("removed virtual serial link")
		}
	}

	log.Info().Int("pairs", len(m.links)/2).Msg("virtual serial cleanup complete")
}
