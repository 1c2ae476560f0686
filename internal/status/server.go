package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/daemon"
	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/internal/feature"
)

// replyTimeout bounds how long an API call waits for the command queue.
const replyTimeout = 5 * time.Second

// StateSource reports the controller state.
type StateSource interface {
	Snapshot() domain.Snapshot
}

// BacklogMessage is the first websocket frame: the overlay contents.
type BacklogMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// EventMessage carries one status event.
type EventMessage struct {
	Type  string             `json:"type"`
	Event domain.StatusEvent `json:"event"`
	Line  string             `json:"line"`
}

// StateResponse is the body of /api/state and of the control endpoints.
type StateResponse struct {
	domain.Snapshot
	Features []feature.Info `json:"features"`
}

// ConfigRequest is the body of POST /api/config. Absent fields keep their
// current value.
type ConfigRequest struct {
	SkipEnabled   *bool    `json:"skip_enabled"`
	TargetProcess *string  `json:"target_process"`
	Threshold     *float64 `json:"threshold"`
}

// Server exposes the status stream and the control endpoints over HTTP.
type Server struct {
	hub      *Hub
	overlay  *Overlay
	state    StateSource
	commands chan<- daemon.Command
	features *feature.Registry
	shutdown func()
	logger   *zap.Logger
}

// NewServer creates a status server.
func NewServer(
	hub *Hub,
	overlay *Overlay,
	state StateSource,
	commands chan<- daemon.Command,
	features *feature.Registry,
	logger *zap.Logger,
) *Server {
	return &Server{
		hub:      hub,
		overlay:  overlay,
		state:    state,
		commands: commands,
		features: features,
		logger:   logger,
	}
}

// OnShutdownRequest sets the function POST /api/shutdown calls, normally the
// cancel func of the service context. Without it the endpoint answers 501.
func (s *Server) OnShutdownRequest(fn func()) {
	s.shutdown = fn
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/config", s.handleConfig)
	mux.HandleFunc("POST /api/shutdown", s.handleShutdown)

	return mux
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status server listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept error", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	events, cancel := s.hub.Subscribe(DefaultSubscriberBuffer)
	defer cancel()

	// The feed is write-only; CloseRead handles pings and the close frame.
	ctx := conn.CloseRead(r.Context())

	s.logger.Debug("websocket connected", zap.String("remote", r.RemoteAddr))

	if err := wsjson.Write(ctx, conn, BacklogMessage{Type: "backlog", Text: s.overlay.Text()}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "service stopping")
				return
			}
			msg := EventMessage{Type: "status", Event: ev, Line: FormatLine(ev)}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				s.logger.Debug("websocket write error", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.state.Snapshot())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	snap, err := s.send(r.Context(), daemon.Command{Kind: daemon.CmdToggle})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.writeState(w, snap)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Threshold != nil && (*req.Threshold <= 0 || *req.Threshold > 1) {
		http.Error(w, "threshold must be in (0,1]", http.StatusBadRequest)
		return
	}

	patch := daemon.ConfigPatch{
		SkipEnabled:   req.SkipEnabled,
		TargetProcess: req.TargetProcess,
		Threshold:     req.Threshold,
	}
	snap, err := s.send(r.Context(), daemon.Command{Kind: daemon.CmdPatchConfig, Patch: patch})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.writeState(w, snap)
}

// ShutdownResponse is the body of POST /api/shutdown.
type ShutdownResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if s.shutdown == nil {
		http.Error(w, "shutdown not available", http.StatusNotImplemented)
		return
	}
	s.logger.Info("shutdown requested", zap.String("remote", r.RemoteAddr))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(ShutdownResponse{Status: "stopping"})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	s.shutdown()
}

// send queues cmd and waits for the controller's reply.
func (s *Server) send(ctx context.Context, cmd daemon.Command) (domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	reply := make(chan domain.Snapshot, 1)
	cmd.Reply = reply

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return domain.Snapshot{}, errors.New("command queue busy")
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return domain.Snapshot{}, errors.New("no reply from controller")
	}
}

func (s *Server) writeState(w http.ResponseWriter, snap domain.Snapshot) {
	resp := StateResponse{Snapshot: snap, Features: s.features.Infos()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debug("state encode error", zap.Error(err))
	}
}
