package repoview

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/internal/fakebackend"
	"github.com/grovetools/repoview/pkg/rpc"
	"github.com/grovetools/repoview/pkg/session"
	"github.com/grovetools/repoview/pkg/viewmodel"
	"github.com/grovetools/repoview/testutil"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainOptions() Options {
	return Options{
		Renderer: lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.Ascii)),
		Timeout:  5 * time.Second,
	}
}

func idleModel(t *testing.T) *Model {
	t.Helper()
	cfg := config.Default()
	cfg.Session.ChangesMode = config.ChangesModePoll
	cfg.Session.Timezone = "UTC"
	s, err := session.New(cfg, rpc.New(rpc.Options{Logger: testutil.NullLogger()}), nil)
	require.NoError(t, err)
	m := New(s, "/r", plainOptions())
	t.Cleanup(m.Release)
	return m
}

func oneCommitRepo() *viewmodel.Repo {
	return &viewmodel.Repo{
		Commits: []viewmodel.Commit{{
			Subject:    "root",
			Author:     "m",
			Datetime:   "2021-03-04 05:06",
			BranchName: "main",
		}},
		Branches:           []viewmodel.Branch{{Name: "main"}},
		CurrentBranchName:  "main",
		RepoPath:           "/work/r",
		UncommittedChanges: 2,
	}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(t *testing.T) *Model {
	t.Helper()
	m := idleModel(t)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return m
}

func TestViewBeforeFirstSize(t *testing.T) {
	m := idleModel(t)
	assert.Contains(t, m.View(), "Opening /r")
}

func TestViewRendersRepo(t *testing.T) {
	m := sized(t)
	assert.Contains(t, m.View(), "waiting for the first snapshot")

	m.Update(updateMsg{State: session.Live, Repo: oneCommitRepo()})
	view := m.View()
	assert.Contains(t, view, "/work/r")
	assert.Contains(t, view, "main")
	assert.Contains(t, view, "live")
	assert.Contains(t, view, "2 uncommitted")
	assert.Contains(t, view, "● root")
	assert.NotContains(t, view, "2021-03-04")

	m.Update(keyPress("d"))
	assert.Contains(t, m.View(), "● root  m 2021-03-04 05:06")
}

func TestErroredUpdateKeepsModel(t *testing.T) {
	m := sized(t)
	m.Update(updateMsg{State: session.Live, Repo: oneCommitRepo()})
	m.Update(updateMsg{State: session.Errored, Err: fmt.Errorf("connection closed (code: 1006)")})

	view := m.View()
	assert.Contains(t, view, "errored")
	assert.Contains(t, view, "code: 1006")
	assert.Contains(t, view, "● root", "last good model is still shown")
	assert.Error(t, m.Err())

	m.Update(updateMsg{State: session.Opening})
	assert.NoError(t, m.Err())
}

func TestSearchInput(t *testing.T) {
	m := sized(t)
	m.Update(keyPress("/"))
	assert.False(t, m.search.Focused(), "search needs a live session")

	m.Update(updateMsg{State: session.Live, Repo: oneCommitRepo()})
	m.Update(keyPress("/"))
	require.True(t, m.search.Focused())
	m.Update(keyPress("fix"))
	assert.Equal(t, "fix", m.search.Value())

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.search.Focused())

	m.Update(keyPress("/"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	res, ok := cmd().(resultMsg)
	require.True(t, ok)
	assert.Equal(t, "search", res.op)
	assert.Error(t, res.err, "the session itself is not live")
}

func TestRequestFailureIsShown(t *testing.T) {
	m := sized(t)
	m.Update(resultMsg{op: "refresh", err: fmt.Errorf("boom")})
	assert.Contains(t, m.View(), "refresh failed: boom")
}

func TestQuit(t *testing.T) {
	m := sized(t)
	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelAgainstBackend(t *testing.T) {
	backend := testutil.StartBackend(t, fakebackend.Options{PollTimeout: 200 * time.Millisecond})
	backend.Config.Session.ChangesMode = config.ChangesModePoll
	backend.Config.Session.PollRetryDelay = 50 * time.Millisecond
	backend.AddFixture(fakebackend.SampleFixture("/r"))

	tr := rpc.New(rpc.Options{MethodPrefix: "api", Logger: testutil.NullLogger()})
	s, err := session.New(backend.Config, tr, nil)
	require.NoError(t, err)
	m := New(s, "/r", plainOptions())
	t.Cleanup(func() {
		m.Release()
		s.Close(context.Background())
	})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

	res := m.open()().(resultMsg)
	require.NoError(t, res.err)

	deadline := time.After(5 * time.Second)
	for m.state != session.Live || m.repo == nil || len(m.repo.Commits) < 5 {
		next := make(chan tea.Msg, 1)
		go func() { next <- m.waitForUpdate()() }()
		select {
		case msg := <-next:
			m.Update(msg)
		case <-deadline:
			t.Fatal("no snapshot reached the view")
		}
	}
	assert.Contains(t, m.View(), "Merge branch 'feature'")
	assert.Contains(t, m.View(), "live")
}
