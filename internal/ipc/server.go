// pattern: Imperative Shell

// Package ipc serves the compositor's control API over HTTP: queries,
// commands, test-client and output management, and event and log streams
// over SSE and websocket.
package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/internal/events"
	"tessera/internal/headless"
	"tessera/internal/layout"
	"tessera/internal/logging"
	"tessera/internal/server"
	"tessera/internal/tree"
)

// Backend is the compositor as seen by the API. *server.Server implements
// it.
type Backend interface {
	Tree(ctx context.Context) (events.TreeNode, error)
	Execute(ctx context.Context, line string) ([]events.CommandResult, error)
	Stats(ctx context.Context) (server.Stats, error)
	Decorations(ctx context.Context) ([]headless.Decoration, error)
	AddOutput(ctx context.Context, name string, box layout.Box) error
	RemoveOutput(ctx context.Context, name string) error
	ResizeOutput(ctx context.Context, name string, box layout.Box) error
	OpenClient(ctx context.Context, spec server.ClientSpec) (tree.WindowID, error)
	CloseClient(ctx context.Context, id tree.WindowID) error
	Input(ctx context.Context, ev server.Input) error
}

// Config holds IPC server configuration.
type Config struct {
	Bind string
	Port int
}

// Server is the IPC HTTP server.
type Server struct {
	httpServer *http.Server
	backend    Backend
	logger     *logging.ScopedLogger
	addr       string
	listener   net.Listener
	events     *eventBroker
	logs       *logging.Broadcaster
	session    string
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates an IPC server. logs may be nil, in which case /api/logs
// reports that log streaming is unavailable.
func New(cfg Config, backend Backend, logProvider logging.LoggerProvider, logs *logging.Broadcaster) *Server {
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		backend: backend,
		logger:  logProvider.For("ipc"),
		addr:    addr,
		events:  newEventBroker(),
		logs:    logs,
		session: uuid.NewString(),
		done:    make(chan struct{}),
	}

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/tree", s.handleTree)
	mux.HandleFunc("GET /api/workspaces", s.handleWorkspaces)
	mux.HandleFunc("GET /api/outputs", s.handleOutputs)
	mux.HandleFunc("POST /api/outputs", s.handleAddOutput)
	mux.HandleFunc("PUT /api/outputs/{name}", s.handleResizeOutput)
	mux.HandleFunc("DELETE /api/outputs/{name}", s.handleRemoveOutput)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/decorations", s.handleDecorations)
	mux.HandleFunc("POST /api/command", s.handleCommand)
	mux.HandleFunc("POST /api/clients", s.handleOpenClient)
	mux.HandleFunc("DELETE /api/clients/{id}", s.handleCloseClient)
	mux.HandleFunc("POST /api/input", s.handleInput)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/subscribe", s.handleSubscribe)

	return s
}

// Publish streams ev to every subscriber whose filter accepts it. It never
// blocks and is safe to call from the compositor loop.
func (s *Server) Publish(ev events.Event) {
	s.events.Publish(ev)
}

// Session returns the id of this compositor run.
func (s *Server) Session() string { return s.session }

// Listen binds the server to its configured address and returns the listener.
// Call Serve() after Listen() to start accepting connections.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("ipc listen: %w", err)
	}
	s.listener = ln
	return ln, nil
}

// Serve accepts connections on the listener. Blocks until the server stops.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("ipc server started", "addr", ln.Addr().String(), "session", s.session)
	return s.httpServer.Serve(ln)
}

// Addr returns the address the server is listening on.
// Only valid after Listen() has been called.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops accepting connections, ends every stream and waits for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("ipc server shutting down")
	s.closeOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": s.session})
}
