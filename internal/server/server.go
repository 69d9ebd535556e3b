// Package server is the WebSocket front end of the game: it accepts
// connections, routes their commands to the session manager and fans
// session events back out.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lawnchairsociety/gridquest/internal/config"
	"github.com/lawnchairsociety/gridquest/internal/database"
	"github.com/lawnchairsociety/gridquest/internal/gametime"
	"github.com/lawnchairsociety/gridquest/internal/items"
	"github.com/lawnchairsociety/gridquest/internal/logger"
	"github.com/lawnchairsociety/gridquest/internal/session"
	"github.com/lawnchairsociety/gridquest/internal/stats"
)

// Directory serves the read-only HTTP listings. Store implements it.
type Directory interface {
	ListGames(ctx context.Context) ([]database.GameSummary, error)
	RecentResults(ctx context.Context, gameID string, limit int) ([]session.GameResult, error)
	WinCounts(ctx context.Context) (map[string]int, error)
}

// Deps are the collaborators handed to the session manager. Directory,
// Results and Names may be nil.
type Deps struct {
	Games     session.GameStore
	Results   session.ResultRecorder
	Names     session.NameValidator
	Directory Directory
	Catalog   *items.Catalog
	Clock     gametime.Clock
	Roller    stats.Roller
}

type Server struct {
	cfg          *config.ServerConfig
	hub          *Hub
	sessions     *session.Manager
	router       *Router
	directory    Directory
	connLimiter  *ConnLimiter
	joinLimiter  *JoinLimiter
	clock        gametime.Clock
	upgrader     websocket.Upgrader
	ctx          context.Context
	cancel       context.CancelFunc
	conns        sync.WaitGroup
	mu           sync.Mutex
	httpServer   *http.Server
	shutdownOnce sync.Once
	StartTime    time.Time
}

// NewServer wires a hub, a session manager and a router together.
func NewServer(cfg *config.ServerConfig, deps Deps) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	hub := NewHub()
	sessions := session.NewManager(cfg.Game, session.Deps{
		Broadcaster: hub,
		Games:       deps.Games,
		Results:     deps.Results,
		Names:       deps.Names,
		Clock:       deps.Clock,
		Roller:      deps.Roller,
		Catalog:     deps.Catalog,
	})
	joins := NewJoinLimiter(cfg.JoinLimit, deps.Clock)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:         cfg,
		hub:         hub,
		sessions:    sessions,
		router:      NewRouter(sessions, hub, joins),
		directory:   deps.Directory,
		connLimiter: NewConnLimiter(cfg.Connections),
		joinLimiter: joins,
		clock:       deps.Clock,
		ctx:         ctx,
		cancel:      cancel,
		StartTime:   time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}
	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Hub returns the connection hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP routes: the WebSocket endpoint, a health check
// and, when a Directory is set, the game and result listings.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.directory != nil {
		mux.HandleFunc("GET /games", s.handleGames)
		mux.HandleFunc("GET /results", s.handleResults)
		mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	}
	return mux
}

// ListenAndServe serves on address until ctx ends or the listener fails,
// then shuts everything down.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("WebSocket server listening", "address", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.Shutdown()
		return nil
	})
	return g.Wait()
}

// Shutdown ends every session, disconnects every client and stops the
// listener. Safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.sessions.Shutdown()
		s.hub.closeAll()
		s.cancel()
		s.joinLimiter.Stop()

		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("HTTP shutdown failed", "error", err)
			}
			cancel()
		}

		s.conns.Wait()
		logger.Info("Server shutdown complete")
	})
}

func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.ctx.Done():
		http.Error(w, "Server is shutting down.", http.StatusServiceUnavailable)
		return
	default:
	}

	ip := clientIP(r, &s.cfg.WebSocket)
	if !s.connLimiter.TryAcquire(ip) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", ip)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(ip)
		return
	}

	s.conns.Add(1)
	defer s.conns.Done()
	c := newClient(wsConn, ip, s.cfg.WebSocket.SendQueueSize)
	c.commands = NewCommandTracker(s.cfg.Commands, s.clock)
	s.handleConnection(c)
}

func (s *Server) handleConnection(c *Client) {
	s.hub.register(c)
	logger.Info("Client connected", "conn", c.id, "ip", c.ip)

	err := c.run(s.ctx, s.cfg.WebSocket.MaxMessageSize, func(ctx context.Context, env Envelope) {
		s.router.Dispatch(ctx, c, env)
	})

	s.sessions.Disconnect(c.id)
	s.hub.unregister(c)
	s.connLimiter.Release(c.ip)
	if err != nil {
		logger.Info("Client disconnected", "conn", c.id, "error", err)
	} else {
		logger.Info("Client disconnected", "conn", c.id)
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Sessions    int    `json:"sessions"`
	Connections int    `json:"connections"`
	Uptime      string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthResponse{
		Status:      "ok",
		Sessions:    s.sessions.Count(),
		Connections: s.hub.Count(),
		Uptime:      time.Since(s.StartTime).Round(time.Second).String(),
	})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.directory.ListGames(r.Context())
	if err != nil {
		logger.Error("Failed to list games", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, games)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}
	results, err := s.directory.RecentResults(r.Context(), r.URL.Query().Get("game"), limit)
	if err != nil {
		logger.Error("Failed to list results", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, results)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	counts, err := s.directory.WinCounts(r.Context())
	if err != nil {
		logger.Error("Failed to count wins", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, counts)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}
