package realtime

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"marker-ide/internal/lockfile"
	"marker-ide/internal/portalloc"
	"marker-ide/internal/protocol"
	"marker-ide/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendBuffer    = 256

	// maxFrameSize bounds one inbound frame; requests carry no payload of note.
	maxFrameSize = 4 << 20
)

// ErrAuthRejected is logged for connections presenting a wrong token.
var ErrAuthRejected = errors.New("invalid auth token")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Loopback only; the token is the gate.
	},
}

// Config controls where a session listens and how it advertises itself.
type Config struct {
	IDEName   string
	LockDir   string
	PortMin   int
	PortMax   int
	ScanLimit int
}

// DefaultConfig returns the settings the assistant expects out of the box.
func DefaultConfig() Config {
	dir, _ := lockfile.DefaultDir()
	return Config{
		IDEName:   "Marker",
		LockDir:   dir,
		PortMin:   portalloc.DefaultMin,
		PortMax:   portalloc.DefaultMax,
		ScanLimit: portalloc.DefaultScanLimit,
	}
}

// Server is one control-plane session: a loopback WebSocket endpoint that
// authenticates peers, answers their queries and pushes active-file changes.
type Server struct {
	cfg      Config
	tracker  *session.Tracker
	alloc    *portalloc.Allocator
	logger   *zap.SugaredLogger
	metrics  *metrics
	handlers map[string]handlerFunc

	// lifecycleMu serializes Start and Stop.
	lifecycleMu sync.Mutex

	// mu guards the fields below. Active-file updates hold it across the
	// tracker write and the fan-out so peers see updates in order.
	mu        sync.Mutex
	workspace string
	token     string
	port      int
	httpSrv   *http.Server
	lock      *lockfile.Lockfile
	peers     map[string]*peer
}

var _ session.Endpoint = (*Server)(nil)

// New creates a stopped server. The tracker is shared with the host.
func New(cfg Config, tracker *session.Tracker, logger *zap.SugaredLogger, scope tally.Scope) *Server {
	if tracker == nil {
		tracker = session.NewTracker()
	}
	if scope == nil {
		scope = tally.NoopScope
	}

	alloc := portalloc.New(portalloc.DefaultHost)
	if cfg.ScanLimit > 0 {
		alloc.ScanLimit = cfg.ScanLimit
	}

	s := &Server{
		cfg:     cfg,
		tracker: tracker,
		alloc:   alloc,
		logger:  logger,
		metrics: newMetrics(scope),
		peers:   make(map[string]*peer),
	}
	s.handlers = s.routes()
	return s
}

// Factory adapts New to the session manager.
func Factory(cfg Config, logger *zap.SugaredLogger, scope tally.Scope) session.Factory {
	return func(tracker *session.Tracker) session.Endpoint {
		return New(cfg, tracker, logger, scope)
	}
}

// Start begins a session for workspace: fresh token, free port, listener,
// lock file. A running session is stopped first. On error nothing is left
// listening and no lock file remains.
func (s *Server) Start(workspace string) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.stop()

	token := uuid.NewString()

	port, err := s.alloc.Find(s.cfg.PortMin, s.cfg.PortMax)
	if err != nil {
		return fmt.Errorf("allocate port: %w", err)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(portalloc.DefaultHost, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	httpSrv := &http.Server{Handler: s.Handler()}

	s.mu.Lock()
	s.workspace = workspace
	s.token = token
	s.port = port
	s.httpSrv = httpSrv
	s.peers = make(map[string]*peer)
	s.mu.Unlock()

	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Errorw("IDE server stopped serving", "port", port, "error", err)
		}
	}()

	lf := lockfile.New(s.cfg.LockDir)
	if err := lf.Write(port, workspace, s.cfg.IDEName, token); err != nil {
		s.stop()
		return err
	}

	s.mu.Lock()
	s.lock = lf
	s.mu.Unlock()

	s.logger.Infow("IDE server started",
		"port", port,
		"workspace", workspace,
		"lockFile", lf.Path(),
	)
	return nil
}

// Stop ends the session: peers are disconnected, the listener closed and the
// lock file removed. Safe to call repeatedly or before Start.
func (s *Server) Stop() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.stop()
}

func (s *Server) stop() {
	s.mu.Lock()
	httpSrv, lf, peers, port := s.httpSrv, s.lock, s.peers, s.port
	s.httpSrv = nil
	s.lock = nil
	s.peers = make(map[string]*peer)
	s.workspace = ""
	s.token = ""
	s.port = 0
	s.metrics.peers.Update(0)
	s.mu.Unlock()

	if httpSrv == nil && lf == nil {
		return
	}

	for _, p := range peers {
		p.close(websocket.CloseGoingAway, "session stopped")
	}

	if httpSrv != nil {
		if err := httpSrv.Close(); err != nil {
			s.logger.Warnw("closing listener failed", "port", port, "error", err)
		}
	}

	if lf != nil {
		if err := lf.Remove(); err != nil {
			s.logger.Warnw("lock file cleanup failed", "error", err)
		}
	}

	s.logger.Infow("IDE server stopped", "port", port)
}

// Handler returns the WebSocket endpoint. Every path upgrades.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	return mux
}

// handleWebSocket upgrades the connection and admits it as a peer only if it
// carries the session token.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	presented := r.Header.Get(protocol.AuthHeader)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade error", "remote", r.RemoteAddr, "error", err)
		return
	}

	p := &peer{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		server: s,
	}

	if !s.admit(p, presented) {
		s.metrics.authRejected.Inc(1)
		s.logger.Warnw("connection rejected", "remote", r.RemoteAddr, "error", ErrAuthRejected)
		p.close(protocol.CloseInvalidAuth, protocol.ReasonInvalidAuth)
		return
	}

	s.metrics.connectionsAccepted.Inc(1)
	s.logger.Infow("peer connected", "peer", p.id, "remote", r.RemoteAddr)

	go p.writePump()
	go p.readPump()
}

// admit registers p if token matches the running session's token.
func (s *Server) admit(p *peer, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Plain comparison: the token is per-session, random and loopback-only.
	if s.token == "" || token != s.token {
		return false
	}
	s.peers[p.id] = p
	s.metrics.peers.Update(float64(len(s.peers)))
	return true
}

// removePeer drops p from the broadcast set and releases its send queue.
// Only the peer's read loop calls it, once.
func (s *Server) removePeer(p *peer) {
	s.mu.Lock()
	if cur, ok := s.peers[p.id]; ok && cur == p {
		delete(s.peers, p.id)
		s.metrics.peers.Update(float64(len(s.peers)))
	}
	close(p.send)
	s.mu.Unlock()

	s.logger.Infow("peer disconnected", "peer", p.id)
}

// Port returns the bound port, or 0 when stopped.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// LockPath returns the lock file of the running session, or "".
func (s *Server) LockPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return ""
	}
	return s.lock.Path()
}

// PeerCount returns the number of authenticated, connected peers.
func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}
