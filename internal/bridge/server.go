// Package bridge exposes a drone session to remote clients over websocket.
// Each text message is one script line; the reply is a JSON Reply.
//
//	GET /ws       websocket, one command line per message
//	GET /healthz  200 while the server is up
package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tellolink/internal/tello"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Executor runs one script line; *tello.Drone implements it.
type Executor interface {
	Exec(line string) (tello.Result, error)
}

// Reply is written back for every received line.
type Reply struct {
	Line  string `json:"line"`
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server forwards websocket command lines to one Executor. Lines from all
// clients are executed one at a time, in arrival order.
type Server struct {
	Addr string

	exec    Executor
	execMu  sync.Mutex
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	server  *http.Server
}

// NewServer constructs a Server listening on addr.
func NewServer(addr string, exec Executor) *Server {
	return &Server{Addr: addr, exec: exec, clients: map[*websocket.Conn]bool{}}
}

// Handler returns the HTTP routes of the bridge.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Start serves HTTP and blocks until the server stops or fails.
func (s *Server) Start() error {
	s.mu.Lock()
	s.server = &http.Server{Addr: s.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := s.server
	s.mu.Unlock()

	log.Info().Str("addr", s.Addr).Msg("bridge listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes the listener and every websocket client.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		_ = s.server.Close()
	}
	for c := range s.clients {
		_ = c.Close()
		delete(s.clients, c)
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	log.Info().Str("remote", r.RemoteAddr).Msg("bridge client connected")

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("close websocket")
		}
	}()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		reply := s.run(string(msg))
		b, err := json.Marshal(reply)
		if err != nil {
			log.Error().Err(err).Msg("encode bridge reply")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (s *Server) run(line string) Reply {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	res, err := s.exec.Exec(line)
	reply := Reply{Line: res.Line, OK: err == nil, Value: res.Value}
	if err != nil {
		reply.Error = err.Error()
		reply.Value = nil
		log.Warn().Str("line", line).Err(err).Msg("bridge command failed")
	}
	return reply
}
