package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBranchColor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"main", "#4363d8"},
		{"master", "#aaffc3"},
		{"feature/login-page", "#3cb44b"},
		{"", "#e6194b"},
		{"😀", "#4363d8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BranchColor(tt.name))
			assert.Equal(t, tt.want, BranchColor(tt.name), "must be stable")
		})
	}
}

func TestTextHash(t *testing.T) {
	assert.Equal(t, uint32(0), textHash(""))
	assert.Equal(t, uint32(3343801), textHash("main"))
	// Wraps past 2^31; a signed reading would be negative.
	assert.Equal(t, uint32(3213699682), textHash("master"))
	// Astral characters hash as their surrogate pair.
	assert.Equal(t, uint32(1772899), textHash("😀"))
}

func TestPaletteSize(t *testing.T) {
	assert.Len(t, branchColors, 17)
}
