package repoview

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repoview/pkg/session"
)

// Update handles messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case updateMsg:
		m.state = msg.State
		if msg.Repo != nil {
			m.repo = msg.Repo
		}
		m.err = nil
		if msg.State == session.Errored {
			m.err = msg.Err
		}
		m.refreshContent()
		return m, m.waitForUpdate()

	case updatesClosedMsg:
		return m, nil

	case resultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		} else if msg.op != "open" {
			m.notice = msg.op + " requested"
		}
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.updateSearch(msg)
		}

		if m.help.ShowAll && !key.Matches(msg, m.keys.Quit) {
			m.help.ShowAll = false
			m.resize()
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = true
			m.resize()
			return m, nil

		case key.Matches(msg, m.keys.Search):
			if m.state != session.Live {
				return m, nil
			}
			m.search.SetValue("")
			m.resize()
			return m, tea.Batch(m.search.Focus(), textinput.Blink)

		case key.Matches(msg, m.keys.Refresh):
			return m, m.request("refresh", m.session.Refresh)

		case key.Matches(msg, m.keys.Details):
			m.details = !m.details
			m.refreshContent()
			return m, nil

		case key.Matches(msg, m.keys.Reopen):
			if m.state != session.Errored && m.state != session.Closed {
				return m, nil
			}
			m.notice = ""
			m.resize()
			return m, m.open()

		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
			return m, nil

		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.search.Blur()
		m.resize()
		return m, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.search.Value())
		m.search.Blur()
		m.resize()
		return m, m.request("search", func(ctx context.Context) error {
			return m.session.Search(ctx, text)
		})
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// resize fits the viewport between the header and the footer.
func (m *Model) resize() {
	if m.width == 0 {
		return
	}
	height := m.height - headerHeight - lipgloss.Height(m.footer())
	if height < 1 {
		height = 1
	}
	width := max(m.width-scrollbarWidth, 1)
	if !m.ready {
		m.viewport = viewport.New(width, height)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height
	}
	m.refreshContent()
}
