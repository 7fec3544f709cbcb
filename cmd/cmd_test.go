package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/internal/fakebackend"
	"github.com/grovetools/repoview/pkg/session"
	"github.com/grovetools/repoview/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, backend *testutil.Backend, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{
		"--host", backend.Config.Server.Host,
		"--rpc-port", strconv.Itoa(backend.Config.Server.RPCPort),
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func sampleBackend(t *testing.T) *testutil.Backend {
	t.Helper()
	backend := testutil.StartBackend(t, fakebackend.Options{PollTimeout: 200 * time.Millisecond})
	backend.AddFixture(fakebackend.SampleFixture("/r"))
	return backend
}

func TestLogPrintsGraph(t *testing.T) {
	backend := sampleBackend(t)
	out, err := run(t, backend, "log", "/r", "--color", "never")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Merge branch 'feature'")
	assert.Contains(t, lines[4], "Initial commit")
	assert.NotContains(t, out, "Jane Doe")
	assert.Equal(t, 1, backend.CallCount("CloseRepo"), "repository released")

	out, err = run(t, backend, "log", "/r", "--color", "never", "--details", "--width", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe")
}

func TestLogJSONWithSearch(t *testing.T) {
	backend := sampleBackend(t)
	out, err := run(t, backend, "log", "/r", "--json", "--search", "feature", "--changes", "poll")
	require.NoError(t, err)

	var got logOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Repo)
	assert.Len(t, got.Repo.Commits, 5)
	assert.Equal(t, "feature", got.Repo.SearchText)
	assert.Equal(t, 50, got.Layout.Width)
	assert.Equal(t, 100, got.Layout.Height)
	assert.Len(t, got.Layout.CommitMarks, 5)
}

func TestLogRejectsBadColor(t *testing.T) {
	backend := sampleBackend(t)
	_, err := run(t, backend, "log", "/r", "--color", "sometimes")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestLogUnknownRepository(t *testing.T) {
	backend := sampleBackend(t)
	_, err := run(t, backend, "log", "/missing")
	assert.True(t, errors.Is(err, errors.ErrCodeCallFailed))
}

func TestCallCommand(t *testing.T) {
	backend := sampleBackend(t)
	out, err := run(t, backend, "call", "OpenRepo", `"/r"`)
	require.NoError(t, err)
	var id string
	require.NoError(t, json.Unmarshal([]byte(out), &id))
	assert.Len(t, id, 36)

	out, err = run(t, backend, "call", "GetRecentWorkingDirs")
	require.NoError(t, err)
	assert.Contains(t, out, `"/r"`)

	_, err = run(t, backend, "call", "OpenRepo", `/r`)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestDirsCommand(t *testing.T) {
	backend := sampleBackend(t)
	backend.SetSubDirs("/work", []string{"/work/a", "/work/b"})

	out, err := run(t, backend, "dirs", "/work")
	require.NoError(t, err)
	assert.Equal(t, "/work/a\n/work/b\n", out)

	out, err = run(t, backend, "dirs", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestConnectFailure(t *testing.T) {
	backend := sampleBackend(t)
	backend.Config.Server.RPCPort = 1
	_, err := run(t, backend, "dirs", "--timeout", "2s")
	assert.True(t, errors.Is(err, errors.ErrCodeConnectFailed))
}

func TestConfigShow(t *testing.T) {
	backend := sampleBackend(t)
	out, err := run(t, backend, "config", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"rpc_url": "ws://`+backend.Config.Server.Host+":")
	assert.Contains(t, out, "/api/events/REPO_ID")

	out, err = run(t, backend, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "changes_mode")
}

func TestVersionJSON(t *testing.T) {
	backend := sampleBackend(t)
	out, err := run(t, backend, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
	assert.Contains(t, out, `"rpcProtocol": "JSON-RPC 2.0 over WebSocket"`)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStreamUpdates(t *testing.T) {
	backend := sampleBackend(t)
	s, err := newSession(backend.Config)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- streamUpdates(ctx, s, "/r", 5*time.Second, &out) }()

	testutil.WaitFor(t, 5*time.Second, func() bool {
		return strings.Contains(out.String(), "Initial commit")
	}, "no snapshot streamed")
	cancel()
	require.NoError(t, <-done)

	var states []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var wl watchLine
		require.NoError(t, json.Unmarshal([]byte(line), &wl))
		states = append(states, wl.State)
	}
	require.GreaterOrEqual(t, len(states), 3)
	assert.Equal(t, []string{"opening", "subscribing"}, states[:2])
	assert.Contains(t, states, "live")
}

func TestStreamUpdatesEndsOnFailure(t *testing.T) {
	backend := sampleBackend(t)
	backend.Config.Session.ChangesMode = config.ChangesModePoll
	s, err := newSession(backend.Config)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- streamUpdates(context.Background(), s, "/r", 5*time.Second, &out) }()

	testutil.WaitFor(t, 5*time.Second, func() bool { return s.State() == session.Live }, "never live")
	backend.DropConnections(0, "")

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, errors.ErrCodeTransportClosed), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end")
	}
	assert.Contains(t, out.String(), `"state":"errored"`)
}
