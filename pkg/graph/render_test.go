package graph

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repoview/pkg/viewmodel"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func plainRenderer() *lipgloss.Renderer {
	return lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.Ascii))
}

func TestRenderText(t *testing.T) {
	out := RenderText(sampleRepo(), TextOptions{Renderer: plainRenderer(), HideDetails: true})
	want := strings.Join([]string{
		"◉─╮ merge feature",
		"│ ● feature 2",
		"● │ main 1",
		"│ ● feature 1",
		"●─╯ root",
	}, "\n") + "\n"
	assert.Equal(t, want, out)
}

func TestRenderTextDetailsAndWidth(t *testing.T) {
	repo := &viewmodel.Repo{
		Commits:  []viewmodel.Commit{{Index: 0, Subject: "a", Author: "m", Datetime: "2021-03-04 05:06", BranchName: "main"}},
		Branches: []viewmodel.Branch{{Index: 0, Name: "main"}},
	}
	r := plainRenderer()
	assert.Equal(t, "● a  m 2021-03-04 05:06\n", RenderText(repo, TextOptions{Renderer: r}))
	assert.Equal(t, "● a  m\n", RenderText(repo, TextOptions{Renderer: r, Width: 6}))
}

func TestRenderTextEmpty(t *testing.T) {
	assert.Empty(t, RenderText(nil, TextOptions{}))
	assert.Empty(t, RenderText(&viewmodel.Repo{}, TextOptions{}))
}
