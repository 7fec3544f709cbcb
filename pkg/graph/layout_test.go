package graph

import (
	"testing"

	"github.com/grovetools/repoview/pkg/viewmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleRepo is main with a feature branch merged back:
//
//	0 ◉ main     merge
//	1 │ ● feature
//	2 ● │ main
//	3 │ ● feature
//	4 ● main
func sampleRepo() *viewmodel.Repo {
	return &viewmodel.Repo{
		Commits: []viewmodel.Commit{
			{Index: 0, Subject: "merge feature", BranchName: "main", BranchIndex: 0, IsMerge: true},
			{Index: 1, Subject: "feature 2", BranchName: "feature", BranchIndex: 1},
			{Index: 2, Subject: "main 1", BranchName: "main", BranchIndex: 0},
			{Index: 3, Subject: "feature 1", BranchName: "feature", BranchIndex: 1},
			{Index: 4, Subject: "root", BranchName: "main", BranchIndex: 0},
		},
		Branches: []viewmodel.Branch{
			{Index: 0, Name: "main", FirstIndex: 0, LastIndex: 4},
			{Index: 1, Name: "feature", FirstIndex: 1, LastIndex: 3},
		},
		Merges: []viewmodel.Merge{
			{BranchName: "feature", BranchIndex1: 0, FirstCommitIndex: 0, BranchIndex2: 1, LastCommitIndex: 1},
			{BranchName: "feature", BranchIndex1: 1, FirstCommitIndex: 3, BranchIndex2: 0, LastCommitIndex: 4, IsBranch: true},
		},
	}
}

func TestDimensions(t *testing.T) {
	repo := &viewmodel.Repo{
		Branches: make([]viewmodel.Branch, 5),
		Commits:  make([]viewmodel.Commit, 3),
	}
	dm := Layout(repo)
	assert.Equal(t, 110, dm.Width)
	assert.Equal(t, 60, dm.Height)

	empty := Layout(&viewmodel.Repo{})
	assert.Equal(t, LeftMargin, empty.Width)
	assert.Equal(t, 0, empty.Height)
	assert.Empty(t, empty.BranchLines)

	assert.Equal(t, LeftMargin, Layout(nil).Width)
}

func TestLayoutPrimitives(t *testing.T) {
	dm := Layout(sampleRepo())

	require.Len(t, dm.BranchLines, 2)
	assert.Equal(t, Line{X1: 10, Y1: 10, X2: 10, Y2: 90, Width: 2, Color: BranchColor("main"), Branch: "main"}, dm.BranchLines[0])
	assert.Equal(t, Line{X1: 30, Y1: 30, X2: 30, Y2: 70, Width: 2, Color: BranchColor("feature"), Branch: "feature"}, dm.BranchLines[1])

	require.Len(t, dm.MergeLines, 2)
	assert.Equal(t, Line{X1: 10, Y1: 10, X2: 30, Y2: 30, Width: MergeLineWidth, Color: BranchColor("feature"), Branch: "feature"}, dm.MergeLines[0])
	assert.Equal(t, Line{X1: 30, Y1: 70, X2: 10, Y2: 90, Width: BranchLineWidth, Color: BranchColor("feature"), Branch: "feature"}, dm.MergeLines[1])

	require.Len(t, dm.CommitMarks, 5)
	assert.Equal(t, Circle{X: 10, Y: 10, Radius: MergeRadius, Color: BranchColor("main"), Commit: 0}, dm.CommitMarks[0])
	assert.Equal(t, Circle{X: 30, Y: 30, Radius: CommitRadius, Color: BranchColor("feature"), Commit: 1}, dm.CommitMarks[1])
}

func TestLayoutIsDeterministic(t *testing.T) {
	repo := sampleRepo()
	first := Layout(repo)
	second := Layout(repo)
	assert.Equal(t, first, second)
	assert.Equal(t, sampleRepo(), repo, "input must not be modified")
}
