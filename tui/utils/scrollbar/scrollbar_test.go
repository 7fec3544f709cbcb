package scrollbar

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func lines(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("line")
	}
	return b.String()
}

func TestGenerate(t *testing.T) {
	plain := lipgloss.NewStyle()
	vp := viewport.New(10, 4)

	assert.Equal(t, []string{" ", " "}, Generate(&vp, 2, plain))
	assert.Empty(t, Generate(&vp, 0, plain))

	vp.SetContent(lines(3))
	assert.Equal(t, []string{"█", "█", "█", "█"}, Generate(&vp, 4, plain))

	vp.SetContent(lines(8))
	assert.Equal(t, []string{"█", "█", "░", "░"}, Generate(&vp, 4, plain))
	vp.GotoBottom()
	assert.Equal(t, []string{"░", "░", "█", "█"}, Generate(&vp, 4, plain))
}

func TestOverlay(t *testing.T) {
	vp := viewport.New(4, 2)
	vp.SetContent(lines(4))
	out := strings.Split(Overlay(&vp, lipgloss.NewStyle()), "\n")
	assert.Len(t, out, 2)
	assert.True(t, strings.HasSuffix(out[0], "█"))
	assert.True(t, strings.HasSuffix(out[1], "░"))
}
