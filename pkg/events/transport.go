// Package events subscribes to the Server-Sent-Events stream of an open
// repository and delivers its change notifications in arrival order.
package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/logging"
	"github.com/grovetools/repoview/pkg/api"
	"github.com/grovetools/repoview/pkg/rpc"
	"github.com/grovetools/repoview/schema"
	"github.com/sirupsen/logrus"
)

// State is the connection state of a Transport.
type State = rpc.State

const (
	Disconnected = rpc.Disconnected
	Connecting   = rpc.Connecting
	Connected    = rpc.Connected
	Failed       = rpc.Failed
)

const (
	defaultBuffer = 16
	maxEventSize  = 10 * 1024 * 1024
)

// Options configures a Transport.
type Options struct {
	// HTTPClient is used for the subscription. It must not set a Timeout.
	HTTPClient *http.Client
	// Validator checks each payload. Defaults to the repository change schema.
	Validator *schema.Validator
	// Buffer is the capacity of the Events channel.
	Buffer int
	Logger *logrus.Entry
}

// subscription is one open event stream.
type subscription struct {
	url    string
	ctx    context.Context
	cancel context.CancelFunc
	events chan api.RepoChange
	done   chan struct{}
}

// Transport is a single event stream subscription at a time.
type Transport struct {
	client    *http.Client
	validator *schema.Validator
	buffer    int
	logger    *logrus.Entry

	mu      sync.Mutex
	state   State
	sub     *subscription
	events  chan api.RepoChange
	err     error
	onError func(*errors.Error)
}

// New creates a disconnected Transport.
func New(opts Options) (*Transport, error) {
	validator := opts.Validator
	if validator == nil {
		v, err := schema.NewRepoChangeValidator()
		if err != nil {
			return nil, err
		}
		validator = v
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("events")
	}
	return &Transport{
		client:    client,
		validator: validator,
		buffer:    buffer,
		logger:    logger,
	}, nil
}

// OnError registers the callback invoked once when an open stream fails.
func (t *Transport) OnError(fn func(*errors.Error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = fn
}

// Events returns the channel of the current subscription. It is closed when
// the subscription ends. Before the first Connect it returns nil.
func (t *Transport) Events() <-chan api.RepoChange {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events
}

// Err returns the error that ended the last subscription, if any.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect subscribes to url and returns once the server accepted the stream.
// ctx bounds the connection attempt only; the subscription lives until Close.
func (t *Transport) Connect(ctx context.Context, url string) error {
	t.mu.Lock()
	if t.state == Connecting || t.state == Connected {
		state := t.state
		t.mu.Unlock()
		return errors.SubscriptionFailed(url, fmt.Errorf("transport already %s", state))
	}
	t.state = Connecting
	t.err = nil
	t.mu.Unlock()

	sub, body, err := t.open(ctx, url)
	if err != nil {
		t.mu.Lock()
		if t.state == Connecting {
			t.state = Failed
			t.err = err
		}
		t.mu.Unlock()
		t.logger.WithError(err).WithField("url", url).Warn("Subscription failed")
		return err
	}

	t.mu.Lock()
	if t.state != Connecting {
		// Close was called while connecting.
		t.mu.Unlock()
		sub.cancel()
		body.Close()
		return errors.SubscriptionFailed(url, fmt.Errorf("transport closed while connecting"))
	}
	t.sub = sub
	t.events = sub.events
	t.state = Connected
	t.mu.Unlock()

	t.logger.WithField("url", url).Info("Subscribed")
	go t.read(sub, body)
	return nil
}

func (t *Transport) open(ctx context.Context, url string) (*subscription, io.ReadCloser, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	fail := func(err error) (*subscription, io.ReadCloser, error) {
		cancel()
		return nil, nil, errors.SubscriptionFailed(url, err)
	}

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// Abort the attempt if ctx ends before the response headers arrive.
	stop := context.AfterFunc(ctx, cancel)
	resp, err := t.client.Do(req)
	if !stop() {
		if err == nil {
			resp.Body.Close()
		}
		return fail(ctx.Err())
	}
	if err != nil {
		return fail(err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fail(fmt.Errorf("stream returned status %d", resp.StatusCode))
	}
	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType != "text/event-stream" {
		resp.Body.Close()
		return fail(fmt.Errorf("unexpected content type %q", contentType))
	}

	return &subscription{
		url:    url,
		ctx:    streamCtx,
		cancel: cancel,
		events: make(chan api.RepoChange, t.buffer),
		done:   make(chan struct{}),
	}, resp.Body, nil
}

// read parses the stream until it ends. Events are dispatched on the blank
// line that terminates them; data lines of one event are joined with "\n".
func (t *Transport) read(sub *subscription, body io.ReadCloser) {
	defer close(sub.done)
	defer close(sub.events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if len(data) > 0 {
				if !t.deliver(sub, strings.Join(data, "\n")) {
					return
				}
				data = nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := line, ""
		if i := strings.IndexByte(line, ':'); i >= 0 {
			field = line[:i]
			value = strings.TrimPrefix(line[i+1:], " ")
		}
		if field == "data" {
			data = append(data, value)
		}
	}

	if sub.ctx.Err() != nil {
		return
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	t.fail(sub, errors.SubscriptionFailed(sub.url, fmt.Errorf("event stream ended: %w", err)))
}

// deliver validates and decodes one payload and sends it. It returns false
// when the subscription was closed while waiting to send.
func (t *Transport) deliver(sub *subscription, payload string) bool {
	if err := t.validator.ValidateJSON([]byte(payload)); err != nil {
		t.logger.WithError(err).Warn("Skipping invalid event")
		return true
	}
	var change api.RepoChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		t.logger.WithError(err).Warn("Skipping undecodable event")
		return true
	}

	select {
	case sub.events <- change:
		return true
	case <-sub.ctx.Done():
		return false
	}
}

func (t *Transport) fail(sub *subscription, err *errors.Error) {
	t.mu.Lock()
	if t.sub != sub {
		t.mu.Unlock()
		return
	}
	t.sub = nil
	t.state = Failed
	t.err = err
	callback := t.onError
	t.mu.Unlock()

	t.logger.WithError(err).Warn("Event stream failed")
	if callback != nil {
		callback(err)
	}
}

// Close ends the subscription and closes the Events channel. It is a no-op
// when nothing is open.
func (t *Transport) Close() error {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.state = Disconnected
	t.mu.Unlock()

	if sub == nil {
		return nil
	}
	sub.cancel()
	<-sub.done
	t.logger.WithField("url", sub.url).Info("Unsubscribed")
	return nil
}
