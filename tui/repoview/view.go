package repoview

import (
	"fmt"
	"strings"

	"github.com/grovetools/repoview/pkg/graph"
	"github.com/grovetools/repoview/pkg/session"
	"github.com/grovetools/repoview/tui/utils/scrollbar"
)

const (
	// headerHeight is the number of lines above the graph.
	headerHeight   = 2
	scrollbarWidth = 1
)

// View renders the header, the commit graph and the footer.
func (m *Model) View() string {
	if !m.ready {
		return fmt.Sprintf("Opening %s...\n", m.path)
	}
	body := scrollbar.Overlay(&m.viewport, m.opts.Theme.Muted)
	return strings.Join([]string{m.header(), body, m.footer()}, "\n")
}

func (m *Model) header() string {
	t := m.opts.Theme

	path := m.path
	if m.repo != nil && m.repo.RepoPath != "" {
		path = m.repo.RepoPath
	}
	title := t.Header.Render(path)
	if m.repo != nil && m.repo.CurrentBranchName != "" {
		title += "  " + t.Accent.Render(m.repo.CurrentBranchName)
	}
	title += "  " + m.stateLabel()

	var status []string
	switch {
	case m.err != nil:
		status = append(status, t.Error.Render(m.err.Error()))
	case m.repo != nil:
		if n := m.repo.UncommittedChanges; n > 0 {
			status = append(status, t.Warning.Render(fmt.Sprintf("%d uncommitted", n)))
		}
		if n := m.repo.Conflicts; n > 0 {
			status = append(status, t.Error.Render(fmt.Sprintf("%d conflicts", n)))
		}
		if m.repo.MergeMessage != "" {
			status = append(status, t.Muted.Render(m.repo.MergeMessage))
		}
		if m.repo.SearchText != "" {
			status = append(status, t.Info.Render("search: "+m.repo.SearchText))
		}
		status = append(status, t.Muted.Render(fmt.Sprintf("%d commits", len(m.repo.Commits))))
	}
	return title + "\n" + strings.Join(status, "  ")
}

func (m *Model) stateLabel() string {
	t := m.opts.Theme
	label := m.state.String()
	switch m.state {
	case session.Live:
		return t.Success.Render(label)
	case session.Errored:
		return t.Error.Render(label)
	case session.Closed, session.Idle:
		return t.Muted.Render(label)
	default:
		return t.Warning.Render(label)
	}
}

func (m *Model) footer() string {
	if m.search.Focused() {
		return m.search.View()
	}
	help := m.help.View(m.keys)
	if m.notice != "" {
		return m.opts.Theme.Muted.Render(m.notice) + "\n" + help
	}
	return help
}

func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	if m.repo == nil {
		m.viewport.SetContent(m.opts.Theme.Muted.Render("waiting for the first snapshot"))
		return
	}
	content := graph.RenderText(m.repo, graph.TextOptions{
		Width:       m.viewport.Width,
		Renderer:    m.opts.Renderer,
		HideDetails: !m.details,
	})
	m.viewport.SetContent(strings.TrimRight(content, "\n"))
}
