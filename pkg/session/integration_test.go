package session

import (
	"context"
	"testing"
	"time"

	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/internal/fakebackend"
	"github.com/grovetools/repoview/pkg/events"
	"github.com/grovetools/repoview/pkg/rpc"
	"github.com/grovetools/repoview/pkg/viewmodel"
	"github.com/grovetools/repoview/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveSession(t *testing.T, backend *testutil.Backend) (*Session, *rpc.Transport) {
	t.Helper()
	cfg := backend.Config
	tr := rpc.New(rpc.Options{
		MethodPrefix:     cfg.Server.MethodPrefix,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		Logger:           testutil.NullLogger(),
	})
	var factory EventsFactory
	if cfg.Session.ChangesMode != config.ChangesModePoll {
		factory = NewEventsFactory(events.Options{Logger: testutil.NullLogger()})
	}
	s, err := New(cfg, tr, factory)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, tr
}

func waitRepo(t *testing.T, s *Session, cond func(*viewmodel.Repo) bool) *viewmodel.Repo {
	t.Helper()
	var repo *viewmodel.Repo
	testutil.WaitFor(t, 5*time.Second, func() bool {
		repo = s.Repo()
		return repo != nil && cond(repo)
	}, "view model not reconciled")
	return repo
}

func TestSessionAgainstBackend(t *testing.T) {
	backend := testutil.StartBackend(t, fakebackend.Options{})
	backend.AddFixture(fakebackend.SingleCommitFixture("/r", "a"))
	s, tr := liveSession(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Open(ctx, "/r"))
	assert.Equal(t, Live, s.State())
	assert.NotEmpty(t, s.RepoID())

	repo := waitRepo(t, s, func(r *viewmodel.Repo) bool { return len(r.Commits) == 1 })
	assert.Equal(t, 0, repo.Commits[0].Index)
	assert.Equal(t, "a", repo.Commits[0].Subject)
	assert.Equal(t, "/r", repo.RepoPath)

	require.NoError(t, s.Search(ctx, "a"))
	waitRepo(t, s, func(r *viewmodel.Repo) bool { return r.SearchText == "a" })

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, Closed, s.State())
	assert.Equal(t, rpc.Disconnected, tr.State())
	assert.Equal(t, 1, backend.CallCount("CloseRepo"))
}

func TestSessionBackendDrop(t *testing.T) {
	backend := testutil.StartBackend(t, fakebackend.Options{})
	backend.AddFixture(fakebackend.SampleFixture("/r"))
	s, _ := liveSession(t, backend)

	require.NoError(t, s.Open(context.Background(), "/r"))
	waitRepo(t, s, func(r *viewmodel.Repo) bool { return len(r.Commits) == 5 })

	backend.DropConnections(0, "")
	waitState(t, s, Errored)
	code, _, ok := errors.CloseInfo(s.Err())
	require.True(t, ok, "got %v", s.Err())
	assert.Equal(t, 1006, code)
	assert.NotNil(t, s.Repo(), "last good model is kept")

	require.NoError(t, s.Open(context.Background(), "/r"), "a new Open recovers")
	assert.Equal(t, Live, s.State())
}

func TestSessionOpenUnknownPath(t *testing.T) {
	backend := testutil.StartBackend(t, fakebackend.Options{ErrorObjects: true})
	s, _ := liveSession(t, backend)

	err := s.Open(context.Background(), "/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCallFailed))
	assert.Equal(t, Errored, s.State())
}

func TestSessionPollMode(t *testing.T) {
	backend := testutil.StartBackend(t, fakebackend.Options{PollTimeout: 200 * time.Millisecond})
	backend.Config.Session.ChangesMode = config.ChangesModePoll
	backend.Config.Session.PollRetryDelay = 50 * time.Millisecond
	backend.AddFixture(fakebackend.SampleFixture("/r"))
	s, _ := liveSession(t, backend)

	require.NoError(t, s.Open(context.Background(), "/r"))
	repo := waitRepo(t, s, func(r *viewmodel.Repo) bool { return len(r.Commits) == 5 })
	assert.Len(t, repo.Branches, 2)
	assert.Len(t, repo.Merges, 2)
	assert.Positive(t, backend.CallCount("GetRepoChanges"))

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, Closed, s.State())
}
