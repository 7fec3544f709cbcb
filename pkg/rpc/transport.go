package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/logging"
	"github.com/sirupsen/logrus"
)

// State is the connection state of a Transport.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// closeGrace bounds how long Close waits for the server to answer the close frame.
const closeGrace = time.Second

// Options configures a Transport.
type Options struct {
	// MethodPrefix is prepended to every method as "<prefix>.<method>".
	MethodPrefix string
	// HandshakeTimeout bounds the WebSocket handshake. Zero means the
	// gorilla/websocket default.
	HandshakeTimeout time.Duration
	Logger           *logrus.Entry
}

type result struct {
	raw json.RawMessage
	err error
}

type pendingCall struct {
	method string
	ch     chan result
}

// Transport is a JSON-RPC client over one WebSocket connection at a time.
// It is safe for concurrent use.
type Transport struct {
	prefix string
	dialer websocket.Dialer
	logger *logrus.Entry

	mu           sync.Mutex
	state        State
	failure      error
	url          string
	conn         *websocket.Conn
	done         chan struct{}
	pending      map[string]*pendingCall
	onCloseError func(*errors.Error)

	writeMu sync.Mutex
}

// New creates a disconnected Transport.
func New(opts Options) *Transport {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("rpc")
	}
	dialer := *websocket.DefaultDialer
	if opts.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = opts.HandshakeTimeout
	}
	return &Transport{
		prefix:  opts.MethodPrefix,
		dialer:  dialer,
		logger:  logger,
		pending: make(map[string]*pendingCall),
	}
}

// OnCloseError registers the callback invoked once per connection when the
// socket closes unexpectedly. It is not invoked for Close.
func (t *Transport) OnCloseError(fn func(*errors.Error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCloseError = fn
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Failure returns the reason of the last failure while in the Failed state.
func (t *Transport) Failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failure
}

// Open dials url and returns once the handshake completes.
func (t *Transport) Open(ctx context.Context, url string) error {
	t.mu.Lock()
	if t.state == Connecting || t.state == Connected {
		state := t.state
		t.mu.Unlock()
		return errors.ConnectFailed(url, fmt.Errorf("transport already %s", state))
	}
	t.state = Connecting
	t.failure = nil
	t.url = url
	t.mu.Unlock()

	t.logger.WithField("url", url).Info("Connecting")
	conn, resp, err := t.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		if t.state == Connecting {
			t.state = Failed
			t.failure = err
		}
		t.logger.WithError(err).WithField("url", url).Warn("Connection failed")
		return errors.ConnectFailed(url, err)
	}
	if t.state != Connecting {
		// Close was called while dialing.
		conn.Close()
		return errors.ConnectFailed(url, fmt.Errorf("transport closed while connecting"))
	}

	t.conn = conn
	t.state = Connected
	t.done = make(chan struct{})
	go t.readLoop(conn, t.done)

	t.logger.WithField("url", url).Info("Connected")
	return nil
}

// Call invokes method with param and waits for the matching response.
// Cancelling ctx abandons the wait; the request is not withdrawn from the wire.
func (t *Transport) Call(ctx context.Context, method string, param Param) (json.RawMessage, error) {
	fullMethod := method
	if t.prefix != "" {
		fullMethod = t.prefix + "." + method
	}

	t.mu.Lock()
	if t.state != Connected || t.conn == nil {
		t.mu.Unlock()
		return nil, errors.TransportNotOpen(fullMethod)
	}
	id := uuid.NewString()
	call := &pendingCall{method: fullMethod, ch: make(chan result, 1)}
	t.pending[id] = call
	conn := t.conn
	t.mu.Unlock()

	req := Request{JSONRPC: "2.0", ID: id, Method: fullMethod, Params: param.encode()}
	t.logger.WithFields(logrus.Fields{"method": fullMethod, "id": id}).Debug("Calling")

	if err := t.write(conn, req); err != nil {
		if t.remove(id) {
			return nil, closedError(websocket.CloseAbnormalClosure, "", err)
		}
		// The read loop already settled the call.
	}

	select {
	case r := <-call.ch:
		if r.err != nil {
			t.logger.WithError(r.err).WithField("method", fullMethod).Debug("Call failed")
		}
		return r.raw, r.err
	case <-ctx.Done():
		t.remove(id)
		return nil, ctx.Err()
	}
}

// Close closes the socket if open and rejects any waiting calls. It is safe
// to call repeatedly.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn, done := t.conn, t.done
	pending := t.takePending()
	t.conn = nil
	t.done = nil
	t.url = ""
	t.state = Disconnected
	t.failure = nil
	t.mu.Unlock()

	for _, call := range pending {
		call.ch <- result{err: errors.TransportClosed(websocket.CloseNormalClosure, "closed by client")}
	}

	if conn == nil {
		return nil
	}

	t.logger.Info("Closing connection")
	t.writeMu.Lock()
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGrace))
	t.writeMu.Unlock()
	if err == nil {
		select {
		case <-done:
		case <-time.After(closeGrace):
		}
	}
	return conn.Close()
}

func (t *Transport) write(conn *websocket.Conn, v interface{}) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// remove drops a pending call and reports whether it was still pending.
func (t *Transport) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[id]; !ok {
		return false
	}
	delete(t.pending, id)
	return true
}

// takePending empties the pending table. Callers hold t.mu.
func (t *Transport) takePending() map[string]*pendingCall {
	pending := t.pending
	t.pending = make(map[string]*pendingCall)
	return pending
}

func (t *Transport) pendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Transport) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.connectionLost(conn, err)
			return
		}
		t.dispatch(data)
	}
}

func (t *Transport) dispatch(data []byte) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.logger.WithError(err).Warn("Discarding malformed message")
		return
	}

	var id string
	if err := json.Unmarshal(resp.ID, &id); err != nil {
		t.logger.WithField("id", string(resp.ID)).Warn("Discarding message without a call id")
		return
	}

	t.mu.Lock()
	call, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.WithField("id", id).Warn("Discarding response for unknown call")
		return
	}

	raw, err := decodeResult(call.method, resp)
	call.ch <- result{raw: raw, err: err}
}

// connectionLost handles the end of the read loop. It does nothing when the
// connection was already released by Close.
func (t *Transport) connectionLost(conn *websocket.Conn, err error) {
	code, reason, cause := closeDetails(err)
	clean := code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway

	t.mu.Lock()
	if t.conn != conn {
		t.mu.Unlock()
		return
	}
	pending := t.takePending()
	t.conn = nil
	t.done = nil
	callback := t.onCloseError
	if clean {
		t.state = Disconnected
	} else {
		t.state = Failed
		t.failure = err
	}
	t.mu.Unlock()

	conn.Close()

	fields := logrus.Fields{"code": code, "reason": reason, "pending": len(pending)}
	if clean {
		t.logger.WithFields(fields).Info("Connection closed by server")
	} else {
		t.logger.WithFields(fields).Warn("Connection closed unexpectedly")
	}

	for _, call := range pending {
		call.ch <- result{err: closedError(code, reason, cause)}
	}
	if !clean && callback != nil {
		callback(closedError(code, reason, cause))
	}
}

func closedError(code int, reason string, cause error) *errors.Error {
	e := errors.TransportClosed(code, reason)
	e.Cause = cause
	return e
}

// closeDetails maps a read error to a WebSocket close code and reason.
// Errors without a close frame are reported as 1006 (abnormal closure) with
// an empty reason and the read error as cause.
func closeDetails(err error) (int, string, error) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text, nil
	}
	return websocket.CloseAbnormalClosure, "", err
}
