package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lotas/tabgruppen/internal/applog"
	"nhooyr.io/websocket"
)

// ErrNotConnected is returned by Call when no extension is connected, or
// when the connection drops before the reply arrives.
var ErrNotConnected = errors.New("server: extension not connected")

// Server manages the WebSocket connection to the extension.
type Server struct {
	port        int
	callTimeout time.Duration
	msgs        chan IncomingMsg

	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	gone    chan struct{} // closed when conn goes away
	pending map[string]chan IncomingMsg

	callMu sync.Mutex // one outstanding call at a time
}

// Option configures a Server.
type Option func(*Server)

// WithCallTimeout bounds how long Call waits for a reply. Zero waits for
// the caller's context only.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) { s.callTimeout = d }
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int, opts ...Option) *Server {
	s := &Server{
		port:    port,
		msgs:    make(chan IncomingMsg, 64),
		pending: make(map[string]chan IncomingMsg),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of unsolicited messages from the extension.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// WaitConnected blocks until an extension connects or ctx is done.
func (s *Server) WaitConnected(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !s.Connected() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for extension: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// Send sends a command without waiting for a reply. It is a no-op when no
// extension is connected.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn, ctx := s.conn, s.connCtx
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return write(ctx, conn, msg)
}

// Call sends msg with a fresh id and waits for the matching reply. Replies
// with ok=false become errors; code "not_found" wraps facility.ErrNotFound.
func (s *Server) Call(ctx context.Context, msg OutgoingMsg) (IncomingMsg, error) {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	msg.ID = uuid.NewString()
	reply := make(chan IncomingMsg, 1)

	s.mu.Lock()
	conn, gone := s.conn, s.gone
	if conn == nil {
		s.mu.Unlock()
		return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, ErrNotConnected)
	}
	s.pending[msg.ID] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	if err := write(ctx, conn, msg); err != nil {
		return IncomingMsg{}, fmt.Errorf("send %s: %w", msg.Action, err)
	}

	select {
	case resp := <-reply:
		if resp.OK != nil && !*resp.OK {
			return resp, replyError(msg.Action, resp)
		}
		return resp, nil
	case <-gone:
		return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, ErrNotConnected)
	case <-ctx.Done():
		return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, ctx.Err())
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg OutgoingMsg) error {
	applog.Info("ws.send", "action", msg.Action, "id", msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(16 << 20) // tab listings of large windows

		ctx := r.Context()
		gone := make(chan struct{})
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced")
			s.conn.CloseNow()
		}
		s.conn = conn
		s.connCtx = ctx
		s.gone = gone
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connCtx = nil
				s.gone = nil
			}
			s.mu.Unlock()
			close(gone)
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			s.dispatch(msg)
		}
	})
}

// dispatch routes a reply to its waiting caller and everything else to
// Messages. Events are dropped when nobody drains Messages.
func (s *Server) dispatch(msg IncomingMsg) {
	if msg.ID != "" {
		s.mu.Lock()
		reply, ok := s.pending[msg.ID]
		delete(s.pending, msg.ID)
		s.mu.Unlock()
		if ok {
			applog.Info("ws.reply", "id", msg.ID)
			reply <- msg
			return
		}
	}
	applog.Info("ws.recv", "type", msg.Type)
	select {
	case s.msgs <- msg:
	default:
	}
}

// Router returns the HTTP routes served on the bridge port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"connected": s.Connected()})
	})
	r.Handle("/", s.Handler())
	return r
}

// ListenAndServe starts the WebSocket server on the configured port and
// stops it when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
