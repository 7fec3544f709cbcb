// Package scrollbar draws a vertical scrollbar beside a bubbles viewport.
package scrollbar

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

const (
	thumb = "█"
	track = "░"
)

// Generate returns one scrollbar cell per line of height for the viewport's
// position.
func Generate(vp *viewport.Model, height int, style lipgloss.Style) []string {
	if height <= 0 {
		return []string{}
	}
	bar := make([]string, height)

	total := vp.TotalLineCount()
	if total == 0 {
		for i := range bar {
			bar[i] = " "
		}
		return bar
	}
	if total <= vp.Height {
		for i := range bar {
			bar[i] = style.Render(thumb)
		}
		return bar
	}

	size := max(1, height*vp.Height/total)
	percent := min(max(vp.ScrollPercent(), 0), 1)
	last := height - size
	start := min(max(int(float64(last)*percent+0.5), 0), last)

	for i := range bar {
		if i >= start && i < start+size {
			bar[i] = style.Render(thumb)
		} else {
			bar[i] = style.Render(track)
		}
	}
	return bar
}

// Overlay returns the viewport's visible content with the scrollbar appended
// to each line.
func Overlay(vp *viewport.Model, style lipgloss.Style) string {
	lines := strings.Split(vp.View(), "\n")
	bar := Generate(vp, len(lines), style)
	for i := range lines {
		lines[i] += bar[i]
	}
	return strings.Join(lines, "\n")
}
