// Package gateway exposes the chat service over HTTP and WebSocket.
//
// This is a thin boundary: each endpoint maps 1:1 to a chat.Service
// operation and adds no semantics beyond decoding, identity extraction
// and error-to-status mapping.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/parley/internal/chat"
	"github.com/soyeahso/parley/internal/logging"
)

// Server is the Parley HTTP + WebSocket gateway.
type Server struct {
	port int
	bind string

	svc      *chat.Service
	log      *logging.Logger
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// NewServer creates a gateway serving the given chat service.
// bind is "loopback" (default) or "all".
func NewServer(port int, bind string, svc *chat.Service, log *logging.Logger) *Server {
	return &Server{
		port: port,
		bind: bind,
		svc:  svc,
		log:  log.Sub("gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the fully-routed HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleListMessages)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", handleNotFound)

	return mux
}

// Start listens and serves until the context is canceled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	host := "127.0.0.1"
	if s.bind == "all" {
		host = ""
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", s.port))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("gateway listening")
		errc <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
