// Package session ties the RPC and event transports together around one open
// repository and keeps its reconciled view model.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/logging"
	"github.com/grovetools/repoview/pkg/api"
	"github.com/grovetools/repoview/pkg/events"
	"github.com/grovetools/repoview/pkg/graph"
	"github.com/grovetools/repoview/pkg/rpc"
	"github.com/grovetools/repoview/pkg/viewmodel"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Opening
	Subscribing
	Live
	Closing
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Subscribing:
		return "subscribing"
	case Live:
		return "live"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// busy reports whether a new Open must be refused.
func (s State) busy() bool {
	return s == Opening || s == Subscribing || s == Live || s == Closing
}

// RPC is the request/response transport a Session drives.
type RPC interface {
	rpc.Caller
	Open(ctx context.Context, url string) error
	Close() error
	State() rpc.State
	OnCloseError(fn func(*errors.Error))
}

// EventStream is one change-event subscription.
type EventStream interface {
	Connect(ctx context.Context, url string) error
	Close() error
	Events() <-chan api.RepoChange
	OnError(fn func(*errors.Error))
}

// EventsFactory creates the event subscription for each Open.
type EventsFactory func() (EventStream, error)

// NewEventsFactory returns a factory of SSE transports using opts.
func NewEventsFactory(opts events.Options) EventsFactory {
	return func() (EventStream, error) {
		return events.New(opts)
	}
}

// Session is at most one live repository at a time. It is safe for
// concurrent use.
type Session struct {
	cfg        *config.Config
	rpc        RPC
	client     *api.Client
	newEvents  EventsFactory
	reconciler *viewmodel.Reconciler
	broadcast  *broadcaster
	logger     *logrus.Entry

	mu      sync.Mutex
	state   State
	gen     uint64
	repoID  string
	path    string
	stream  EventStream
	stop    context.CancelFunc
	done    chan struct{}
	failure error
}

// New creates an idle Session. newEvents may be nil when the configuration
// selects poll mode.
func New(cfg *config.Config, transport RPC, newEvents EventsFactory) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	loc, err := cfg.Session.Location()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid session timezone").
			WithDetail("timezone", cfg.Session.Timezone)
	}
	if newEvents == nil && cfg.Session.ChangesMode != config.ChangesModePoll {
		return nil, errors.New(errors.ErrCodeInvalidInput, "an events factory is required in events mode")
	}

	s := &Session{
		cfg:        cfg,
		rpc:        transport,
		client:     api.NewClient(transport),
		newEvents:  newEvents,
		reconciler: viewmodel.NewReconciler(loc),
		broadcast:  newBroadcaster(),
		logger:     logging.NewLogger("session"),
	}
	transport.OnCloseError(s.rpcLost)
	return s, nil
}

// Client returns the typed API client sharing the session's transport.
func (s *Session) Client() *api.Client {
	return s.client
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RepoID returns the id of the open repository, or "".
func (s *Session) RepoID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repoID
}

// Path returns the path given to the last Open.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Err returns the failure that moved the session to Errored.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Repo returns the latest view model, or nil before the first snapshot.
func (s *Session) Repo() *viewmodel.Repo {
	return s.reconciler.Repo()
}

// Layout returns the geometry of the latest view model.
func (s *Session) Layout() (graph.DrawModel, bool) {
	repo := s.reconciler.Repo()
	if repo == nil {
		return graph.DrawModel{}, false
	}
	return graph.Layout(repo), true
}

// Subscribe returns a channel receiving every Update. Release it with
// Unsubscribe.
func (s *Session) Subscribe() <-chan Update {
	return s.broadcast.subscribe()
}

// Unsubscribe stops and closes a subscription.
func (s *Session) Unsubscribe(ch <-chan Update) {
	s.broadcast.unsubscribe(ch)
}

// Open opens the repository containing path and subscribes to its changes.
// It returns once the session is live.
func (s *Session) Open(ctx context.Context, path string) error {
	s.mu.Lock()
	if s.state.busy() {
		state := s.state
		s.mu.Unlock()
		return errors.SessionBusy(state.String())
	}
	s.gen++
	gen := s.gen
	s.state = Opening
	s.path = path
	s.repoID = ""
	s.failure = nil
	s.reconciler.Reset()
	s.publishLocked(nil)
	s.mu.Unlock()

	log := s.logger.WithField("path", path)
	log.Info("Opening repository")

	if s.rpc.State() != rpc.Connected {
		if err := s.rpc.Open(ctx, s.cfg.Server.RPCURL()); err != nil {
			return s.fail(gen, err)
		}
	}

	repoID, err := s.client.OpenRepo(ctx, path)
	if err != nil {
		return s.fail(gen, err)
	}
	if !s.advance(gen, Opening, Subscribing, func() { s.repoID = repoID }) {
		return s.abandoned()
	}
	log = log.WithField("repo_id", repoID)

	if s.cfg.Session.ChangesMode == config.ChangesModePoll {
		if !s.startPolling(gen, repoID) {
			return s.abandoned()
		}
	} else if err := s.subscribe(ctx, gen, repoID); err != nil {
		return err
	}

	if err := s.client.TriggerRefreshRepo(ctx, repoID); err != nil {
		return s.fail(gen, err)
	}
	if !s.advance(gen, Subscribing, Live, nil) {
		return s.abandoned()
	}
	log.Info("Repository session live")
	return nil
}

// subscribe connects the event stream for repoID and starts folding its events.
func (s *Session) subscribe(ctx context.Context, gen uint64, repoID string) error {
	stream, err := s.newEvents()
	if err != nil {
		return s.fail(gen, err)
	}
	stream.OnError(func(err *errors.Error) { s.fail(gen, err) })

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return s.abandoned()
	}
	s.stream = stream
	s.mu.Unlock()

	if err := stream.Connect(ctx, s.cfg.Server.EventsURL(repoID)); err != nil {
		return s.fail(gen, err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		stream.Close()
		return s.abandoned()
	}
	s.done = done
	s.mu.Unlock()

	go s.fold(gen, stream.Events(), done)
	return nil
}

// fold applies events in arrival order until the stream closes.
func (s *Session) fold(gen uint64, ch <-chan api.RepoChange, done chan struct{}) {
	defer close(done)
	for ev := range ch {
		s.apply(gen, ev)
	}
}

// apply folds changes into the model of generation gen and publishes the
// result. Changes of a superseded generation are dropped.
func (s *Session) apply(gen uint64, changes ...api.RepoChange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	if _, ok := s.reconciler.Apply(changes...); ok {
		s.publishLocked(nil)
	}
	return true
}

// Search asks the backend to highlight commits matching text. The result
// arrives as a later change event.
func (s *Session) Search(ctx context.Context, text string) error {
	repoID, err := s.liveRepoID()
	if err != nil {
		return err
	}
	return s.client.TriggerSearch(ctx, api.Search{RepoID: repoID, Text: text})
}

// Refresh asks the backend to emit a fresh snapshot.
func (s *Session) Refresh(ctx context.Context) error {
	repoID, err := s.liveRepoID()
	if err != nil {
		return err
	}
	return s.client.TriggerRefreshRepo(ctx, repoID)
}

func (s *Session) liveRepoID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Live {
		return "", errors.SessionNotLive(s.state.String())
	}
	return s.repoID, nil
}

// Close releases the repository and both transports. Every step is attempted;
// failures are joined. Closing an idle or closed session is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Idle, Closed:
		s.mu.Unlock()
		return nil
	case Closing:
		s.mu.Unlock()
		return errors.SessionBusy(Closing.String())
	}
	s.gen++
	s.state = Closing
	repoID, stream, stop, done := s.repoID, s.stream, s.stop, s.done
	s.stream, s.stop, s.done = nil, nil, nil
	s.publishLocked(nil)
	s.mu.Unlock()

	log := s.logger.WithField("repo_id", repoID)

	var errs []error
	if stop != nil {
		stop()
	}
	if repoID != "" && s.rpc.State() == rpc.Connected {
		if err := s.client.CloseRepo(ctx, repoID); err != nil {
			log.WithError(err).Warn("Failed to close repository")
			errs = append(errs, err)
		}
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}
	if err := s.rpc.Close(); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	s.state = Closed
	s.repoID = ""
	s.reconciler.Reset()
	s.publishLocked(nil)
	s.mu.Unlock()

	log.Info("Repository session closed")
	return errors.Join(errs...)
}

// rpcLost handles an unexpected drop of the RPC socket.
func (s *Session) rpcLost(err *errors.Error) {
	s.mu.Lock()
	gen, state := s.gen, s.state
	s.mu.Unlock()
	if state == Opening || state == Subscribing || state == Live {
		s.fail(gen, err)
	}
}

// fail moves generation gen to Errored and tears both transports down. It
// returns err so callers can return it directly.
func (s *Session) fail(gen uint64, err error) error {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return err
	}
	s.gen++
	s.state = Errored
	s.failure = err
	s.repoID = ""
	stream, stop := s.stream, s.stop
	s.stream, s.stop, s.done = nil, nil, nil
	s.publishLocked(err)
	s.mu.Unlock()

	s.logger.WithError(err).Warn("Repository session failed")
	if stop != nil {
		stop()
	}
	if stream != nil {
		stream.Close()
	}
	s.rpc.Close()
	return err
}

// advance moves from one state to the next if generation gen is still
// current, running apply under the lock, and publishes the new state.
func (s *Session) advance(gen uint64, from, to State, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != from {
		return false
	}
	s.state = to
	if apply != nil {
		apply()
	}
	s.publishLocked(nil)
	return true
}

// abandoned is the error of an Open overtaken by Close or a failure.
func (s *Session) abandoned() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil && s.state == Errored {
		return s.failure
	}
	return errors.SessionNotLive(s.state.String())
}

// publishLocked publishes the current state and model. Callers hold s.mu so
// that updates leave in the order the state changed.
func (s *Session) publishLocked(err error) {
	s.broadcast.publish(Update{State: s.state, Repo: s.reconciler.Repo(), Err: err})
}

// pollDelay returns the configured delay between failed polls.
func (s *Session) pollDelay() time.Duration {
	if d := s.cfg.Session.PollRetryDelay; d > 0 {
		return d
	}
	return 2 * time.Second
}
