package graph

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repoview/pkg/viewmodel"
)

// Glyphs used by RenderText.
const (
	glyphCommit     = '●'
	glyphMerge      = '◉'
	glyphVertical   = '│'
	glyphHorizontal = '─'
	glyphDownLeft   = '╮'
	glyphDownRight  = '╭'
	glyphUpLeft     = '╯'
	glyphUpRight    = '╰'
)

// TextOptions controls RenderText.
type TextOptions struct {
	// Width truncates every line when positive.
	Width int
	// Renderer decides the color profile. Defaults to lipgloss.DefaultRenderer.
	Renderer *lipgloss.Renderer
	// HideDetails drops author and datetime.
	HideDetails bool
}

// cell is one graph column of one row: the column glyph and the connector
// to its right.
type cell struct {
	glyph     rune
	color     string
	fill      rune
	fillColor string
}

type grid [][]cell

func (g grid) set(row, col int, r rune, color string) {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return
	}
	g[row][col].glyph = r
	g[row][col].color = color
}

func (g grid) setIfEmpty(row, col int, r rune, color string) {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) || g[row][col].glyph != 0 {
		return
	}
	g.set(row, col, r, color)
}

func (g grid) horizontal(row, from, to int, color string) {
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}
	if row < 0 || row >= len(g) {
		return
	}
	for c := lo; c < hi && c < len(g[row]); c++ {
		g[row][c].fill = glyphHorizontal
		g[row][c].fillColor = color
		if c > lo {
			g.setIfEmpty(row, c, glyphHorizontal, color)
		}
	}
}

func (g grid) vertical(col, from, to int, color string) {
	for r := from; r <= to; r++ {
		g.setIfEmpty(r, col, glyphVertical, color)
	}
}

// RenderText draws repo as one terminal line per commit: the graph columns
// followed by the subject and, unless hidden, the author and datetime.
func RenderText(repo *viewmodel.Repo, opts TextOptions) string {
	if repo == nil || len(repo.Commits) == 0 {
		return ""
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}

	columns := 1
	for _, b := range repo.Branches {
		if b.Index+1 > columns {
			columns = b.Index + 1
		}
	}
	for _, c := range repo.Commits {
		if c.BranchIndex+1 > columns {
			columns = c.BranchIndex + 1
		}
	}

	g := make(grid, len(repo.Commits))
	for i := range g {
		g[i] = make([]cell, columns)
	}

	// Commit marks win over lines, lines over connectors.
	for _, c := range repo.Commits {
		mark := glyphCommit
		if c.IsMerge {
			mark = glyphMerge
		}
		g.set(c.Index, c.BranchIndex, mark, BranchColor(c.BranchName))
	}
	for _, m := range repo.Merges {
		color := BranchColor(m.BranchName)
		if m.IsBranch {
			// The branch leaves its base at the parent row.
			corner := glyphUpLeft
			if m.BranchIndex1 < m.BranchIndex2 {
				corner = glyphUpRight
			}
			g.setIfEmpty(m.LastCommitIndex, m.BranchIndex1, corner, color)
			g.vertical(m.BranchIndex1, m.FirstCommitIndex+1, m.LastCommitIndex-1, color)
			g.horizontal(m.LastCommitIndex, m.BranchIndex1, m.BranchIndex2, color)
			continue
		}
		// A merged parent joins the child row.
		corner := glyphDownLeft
		if m.BranchIndex2 < m.BranchIndex1 {
			corner = glyphDownRight
		}
		g.setIfEmpty(m.FirstCommitIndex, m.BranchIndex2, corner, color)
		g.vertical(m.BranchIndex2, m.FirstCommitIndex+1, m.LastCommitIndex-1, color)
		g.horizontal(m.FirstCommitIndex, m.BranchIndex1, m.BranchIndex2, color)
	}
	for _, b := range repo.Branches {
		g.vertical(b.Index, b.FirstIndex, b.LastIndex, BranchColor(b.Name))
	}

	styles := make(map[string]lipgloss.Style)
	paint := func(r rune, color string) string {
		if r == 0 {
			return " "
		}
		if color == "" {
			return string(r)
		}
		style, ok := styles[color]
		if !ok {
			style = renderer.NewStyle().Foreground(lipgloss.Color(color))
			styles[color] = style
		}
		return style.Render(string(r))
	}

	details := renderer.NewStyle().Faint(true)
	line := renderer.NewStyle()
	if opts.Width > 0 {
		line = line.MaxWidth(opts.Width)
	}

	var sb strings.Builder
	for i, c := range repo.Commits {
		var row strings.Builder
		for _, cl := range g[i] {
			row.WriteString(paint(cl.glyph, cl.color))
			row.WriteString(paint(cl.fill, cl.fillColor))
		}
		row.WriteString(c.Subject)
		if !opts.HideDetails {
			row.WriteString(details.Render("  " + c.Author + " " + c.Datetime))
		}
		sb.WriteString(line.Render(strings.TrimRight(row.String(), " ")))
		sb.WriteByte('\n')
	}
	return sb.String()
}
