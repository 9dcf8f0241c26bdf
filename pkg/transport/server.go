// Package transport serves a flow engine over HTTP and WebSocket.
//
// Each WebSocket connection becomes one canvas session: inbound frames
// are applied through the sync protocol handler in arrival order, and
// the session's outbound queue is drained onto the socket by a write
// pump. REST endpoints expose the graph in node-link JSON and as a
// rendered SVG.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/flowpanel/flowpanel/pkg/cache"
	"github.com/flowpanel/flowpanel/pkg/flow"
	"github.com/flowpanel/flowpanel/pkg/observability"
	"github.com/flowpanel/flowpanel/pkg/protocol"
	"github.com/flowpanel/flowpanel/pkg/render"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second

	// renderTTL bounds how long a cached SVG stays valid.
	renderTTL = time.Hour
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Logger receives request and session logs. Defaults to a discard
	// logger when nil.
	Logger *log.Logger

	// CheckOrigin overrides the WebSocket origin check. The default
	// accepts all origins, which suits embedded single-host setups.
	CheckOrigin func(r *http.Request) bool

	// Cache stores rendered SVGs keyed by DOT hash. Defaults to a
	// NullCache when nil.
	Cache cache.Cache
}

// Server exposes a Flow over HTTP.
type Server struct {
	flow     *flow.Flow
	logger   *log.Logger
	upgrader websocket.Upgrader
	cache    cache.Cache
	http     *http.Server
}

// NewServer builds a server around the engine.
func NewServer(f *flow.Flow, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	s := &Server{
		flow:   f,
		logger: opts.Logger,
		cache:  opts.Cache,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/graph", s.handleExport)
	r.Post("/graph", s.handleImport)
	r.Get("/render.svg", s.handleRender)

	s.http = &http.Server{Addr: opts.Addr, Handler: r}
	return s
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.flow.Handler().Flush()
	return s.http.Shutdown(ctx)
}

// Handler returns the HTTP handler, useful for tests and embedding.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok")) //nolint:errcheck
}

// =============================================================================
// WebSocket Sessions
// =============================================================================

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}

	id := uuid.NewString()
	sess := s.flow.Handler().Connect(id)
	observability.Session().OnConnect(r.Context(), id)
	s.logger.Info("session connected", "session", id, "remote", r.RemoteAddr)

	start := time.Now()
	done := make(chan struct{})
	go s.writePump(conn, sess.Outbound(), done)
	s.readPump(conn, id)

	close(done)
	s.flow.Handler().Disconnect(id)
	conn.Close()
	observability.Session().OnDisconnect(context.Background(), id, time.Since(start))
	s.logger.Info("session disconnected", "session", id)
}

// readPump applies inbound frames in arrival order, which gives each
// session FIFO message semantics.
func (s *Server) readPump(conn *websocket.Conn, sessionID string) {
	conn.SetReadDeadline(time.Now().Add(pongTimeout)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongTimeout)) //nolint:errcheck

		msg, err := protocol.Decode(data)
		var msgType string
		if err == nil {
			msgType = string(msg.Type)
			err = s.flow.Handler().Handle(sessionID, msg)
		}
		observability.Session().OnMessage(context.Background(), sessionID, msgType, err)
		if err != nil {
			// A malformed or rejected message is logged and dropped;
			// the session stays up.
			s.logger.Warn("message rejected", "session", sessionID, "err", err)
		}
	}
}

// writePump drains the session queue onto the socket and keeps the
// connection alive with pings.
func (s *Server) writePump(conn *websocket.Conn, outbound <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-outbound:
			if !ok {
				// Session closed server-side (queue overflow or replace).
				conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeTimeout)) //nolint:errcheck
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// =============================================================================
// REST
// =============================================================================

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.flow.ExportJSON(w); err != nil {
		s.logger.Error("export failed", "err", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := s.flow.ImportJSON(r.Body); err != nil {
		s.logger.Warn("import rejected", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts := render.Options{
		Detailed:  r.URL.Query().Get("detailed") == "true",
		Positions: r.URL.Query().Get("positions") == "true",
	}
	g := s.flow.ToGraph()

	// DOT text fully determines the SVG, so it doubles as the cache key.
	key := cache.RenderKey(render.ToDOT(g, opts))
	if svg, ok, err := s.cache.Get(r.Context(), key); err == nil && ok {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(svg) //nolint:errcheck
		return
	}

	svg, err := render.RenderSVG(r.Context(), g, opts)
	if err != nil {
		s.logger.Error("render failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.cache.Set(r.Context(), key, svg, renderTTL); err != nil {
		s.logger.Warn("render cache write failed", "err", err)
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg) //nolint:errcheck
}
