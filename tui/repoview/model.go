// Package repoview is the live terminal view of one repository session.
package repoview

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repoview/pkg/session"
	"github.com/grovetools/repoview/pkg/viewmodel"
	"github.com/grovetools/repoview/tui/theme"
)

const defaultTimeout = 30 * time.Second

// Options configures a Model.
type Options struct {
	// Renderer draws the graph. Defaults to the lipgloss default renderer.
	Renderer *lipgloss.Renderer
	Theme    *theme.Theme
	// Timeout bounds each Open, Search and Refresh request.
	Timeout time.Duration
	// ShowDetails starts with author and date columns visible.
	ShowDetails bool
}

type updateMsg session.Update

type updatesClosedMsg struct{}

// resultMsg reports the outcome of a request issued from the view.
type resultMsg struct {
	op  string
	err error
}

// Model is the bubbletea model of the live view. It opens the repository on
// Init and redraws on every session update. The caller closes the session
// after the program exits.
type Model struct {
	session *session.Session
	path    string
	updates <-chan session.Update
	opts    Options

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	search   textinput.Model

	state   session.State
	repo    *viewmodel.Repo
	err     error
	notice  string
	details bool
	width   int
	height  int
	ready   bool
}

// New creates a view of the repository at path driven by s.
func New(s *session.Session, path string, opts Options) *Model {
	if opts.Renderer == nil {
		opts.Renderer = lipgloss.DefaultRenderer()
	}
	if opts.Theme == nil {
		opts.Theme = theme.DefaultTheme
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "search commits"
	search.CharLimit = 200

	return &Model{
		session: s,
		path:    path,
		updates: s.Subscribe(),
		opts:    opts,
		keys:    DefaultKeyMap,
		help:    help.New(),
		search:  search,
		state:   s.State(),
		repo:    s.Repo(),
		details: opts.ShowDetails,
	}
}

// Init opens the repository and starts listening for updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.open())
}

// Release stops the model's subscription to the session.
func (m *Model) Release() {
	m.session.Unsubscribe(m.updates)
}

// Err returns the failure that moved the session to Errored, if any.
func (m *Model) Err() error {
	return m.err
}

func (m *Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

func (m *Model) open() tea.Cmd {
	return m.request("open", func(ctx context.Context) error {
		return m.session.Open(ctx, m.path)
	})
}

func (m *Model) request(op string, fn func(context.Context) error) tea.Cmd {
	timeout := m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return resultMsg{op: op, err: fn(ctx)}
	}
}
