// Package fakebackend is an in-process repository backend. It serves the
// JSON-RPC API over a WebSocket and repository changes as Server-Sent Events,
// backed by in-memory fixtures instead of git.
package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/repoview/pkg/api"
	"github.com/sirupsen/logrus"
)

// Options configures a Server.
type Options struct {
	RPCPath      string
	EventsPath   string
	MethodPrefix string
	// ErrorObjects answers failures with JSON-RPC 2.0 error objects instead
	// of net/rpc/jsonrpc error strings.
	ErrorObjects bool
	// PollTimeout bounds a GetRepoChanges call with nothing to report.
	PollTimeout time.Duration
	Logger      *logrus.Entry
}

// Call records one request received by the backend.
type Call struct {
	Method string
	Param  json.RawMessage
}

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type handlerFunc func(ctx context.Context, param json.RawMessage) (interface{}, error)

// Server is the fake backend.
type Server struct {
	opts     Options
	logger   *logrus.Entry
	store    *store
	upgrader websocket.Upgrader
	handlers map[string]handlerFunc

	mu       sync.Mutex
	server   *http.Server
	shutdown bool
	conns    map[*websocket.Conn]*sync.Mutex
	calls    []Call
	failures map[string]string
	delays   map[string]time.Duration
}

// New creates a Server with no fixtures.
func New(opts Options) *Server {
	if opts.RPCPath == "" {
		opts.RPCPath = "/api/ws"
	}
	if opts.EventsPath == "" {
		opts.EventsPath = "/api/events"
	}
	if opts.MethodPrefix == "" {
		opts.MethodPrefix = "api"
	}
	if opts.PollTimeout == 0 {
		opts.PollTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = logrus.NewEntry(l)
	}
	s := &Server{
		opts:     opts,
		logger:   logger,
		store:    newStore(),
		conns:    make(map[*websocket.Conn]*sync.Mutex),
		failures: make(map[string]string),
		delays:   make(map[string]time.Duration),
	}
	s.handlers = s.methods()
	return s
}

// AddFixture makes path openable.
func (s *Server) AddFixture(f Fixture) {
	s.store.addFixture(f)
}

// SetSubDirs sets the answer of GetSubDirs for parent.
func (s *Server) SetSubDirs(parent string, dirs []string) {
	s.store.setSubDirs(parent, dirs)
}

// SetFailure makes every call of method fail with message. An empty message
// clears it.
func (s *Server) SetFailure(method, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.failures, method)
		return
	}
	s.failures[method] = message
}

// SetDelay holds every call of method for d before answering.
func (s *Server) SetDelay(method string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[method] = d
}

// Calls returns the requests received so far, in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how often method was called.
func (s *Server) CallCount(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Publish pushes a change to the subscribers and pollers of repoID.
func (s *Server) Publish(repoID string, change api.RepoChange) error {
	return s.store.publish(repoID, change)
}

// CloseRepo ends the event streams of repoID as if the backend dropped it.
func (s *Server) CloseRepo(repoID string) error {
	return s.store.close(repoID)
}

// DropConnections closes every RPC socket. A zero code closes the network
// connection without a close frame.
func (s *Server) DropConnections(code int, reason string) {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[*websocket.Conn]*sync.Mutex)
	s.mu.Unlock()

	for conn, writeMu := range conns {
		if code != 0 {
			writeMu.Lock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
			writeMu.Unlock()
		}
		conn.Close()
	}
}

// Handler returns the HTTP handler serving both endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc(s.opts.RPCPath, s.handleRPC)
	mux.HandleFunc(strings.TrimSuffix(s.opts.EventsPath, "/")+"/", s.handleEvents)
	return mux
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		listener.Close()
		return http.ErrServerClosed
	}
	server := &http.Server{Handler: s.Handler()}
	s.server = server
	s.mu.Unlock()

	s.logger.WithField("addr", listener.Addr().String()).Info("Backend listening")
	return server.Serve(listener)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down backend...")
	s.mu.Lock()
	s.shutdown = true
	server := s.server
	s.mu.Unlock()

	s.DropConnections(websocket.CloseGoingAway, "shutting down")
	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	writeMu := &sync.Mutex{}
	s.mu.Lock()
	s.conns[conn] = writeMu
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	s.logger.Debug("RPC client connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.WithError(err).Debug("RPC client disconnected")
			return
		}
		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.WithError(err).Warn("Discarding malformed request")
			continue
		}
		// Calls are answered concurrently; GetRepoChanges may block.
		go s.serve(ctx, conn, writeMu, req)
	}
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex, req request) {
	method := strings.TrimPrefix(req.Method, s.opts.MethodPrefix+".")
	var param json.RawMessage
	if len(req.Params) > 0 {
		param = req.Params[0]
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Param: param})
	failure := s.failures[method]
	delay := s.delays[method]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}

	var result interface{}
	var err error
	handler, ok := s.handlers[method]
	switch {
	case !strings.HasPrefix(req.Method, s.opts.MethodPrefix+"."), !ok:
		err = fmt.Errorf("rpc: can't find method %s", req.Method)
	case failure != "":
		err = fmt.Errorf("%s", failure)
	default:
		result, err = handler(ctx, param)
	}

	resp := map[string]interface{}{"id": req.ID}
	if err != nil {
		if s.opts.ErrorObjects {
			resp["jsonrpc"] = "2.0"
			resp["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
		} else {
			resp["result"] = nil
			resp["error"] = err.Error()
		}
	} else {
		if s.opts.ErrorObjects {
			resp["jsonrpc"] = "2.0"
		} else {
			resp["error"] = nil
		}
		resp["result"] = result
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.WithError(err).WithField("method", method).Debug("Failed to write response")
	}
}

// handleEvents provides Server-Sent Events for one open repository.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	repoID := strings.TrimPrefix(r.URL.Path, strings.TrimSuffix(s.opts.EventsPath, "/")+"/")

	// Ensure the connection supports flushing
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, ok := s.store.subscribe(repoID)
	if !ok {
		http.Error(w, "unknown repo id", http.StatusNotFound)
		return
	}
	defer s.store.unsubscribe(repoID, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Send initial ping to confirm connection
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	log := s.logger.WithField("repo_id", repoID)
	log.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			log.Debug("SSE client disconnected")
			return
		case change, ok := <-ch:
			if !ok {
				log.Debug("Repository closed, ending stream")
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				log.WithError(err).Error("Failed to marshal change")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
