// Package graph turns a repository view model into drawing primitives.
package graph

import "github.com/grovetools/repoview/pkg/viewmodel"

// Geometry, in pixels.
const (
	ColumnWidth     = 20
	RowHeight       = 20
	LeftMargin      = 10
	CommitRadius    = 3
	MergeRadius     = 5
	BranchLineWidth = 2
	MergeLineWidth  = 1

	middle = RowHeight / 2
)

// Line is a straight stroke from (X1, Y1) to (X2, Y2).
type Line struct {
	X1     int    `json:"x1"`
	Y1     int    `json:"y1"`
	X2     int    `json:"x2"`
	Y2     int    `json:"y2"`
	Width  int    `json:"width"`
	Color  string `json:"color"`
	Branch string `json:"branch"`
}

// Circle is a filled commit marker.
type Circle struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Radius int    `json:"radius"`
	Color  string `json:"color"`
	Commit int    `json:"commit"`
}

// DrawModel is everything needed to paint the graph. Branch lines are meant
// to be drawn first, then merge lines, then commit marks.
type DrawModel struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	BranchLines []Line   `json:"branchLines"`
	MergeLines  []Line   `json:"mergeLines"`
	CommitMarks []Circle `json:"commitMarks"`
}

// Width returns the graph width for repo.
func Width(repo *viewmodel.Repo) int {
	return len(repo.Branches)*ColumnWidth + LeftMargin
}

// Height returns the graph height for repo.
func Height(repo *viewmodel.Repo) int {
	return len(repo.Commits) * RowHeight
}

func columnX(branchIndex int) int { return branchIndex*ColumnWidth + LeftMargin }

func rowY(commitIndex int) int { return commitIndex*RowHeight + middle }

// Layout computes the drawing primitives of repo. It is a pure function of
// its input.
func Layout(repo *viewmodel.Repo) DrawModel {
	if repo == nil {
		return DrawModel{Width: LeftMargin}
	}

	dm := DrawModel{
		Width:       Width(repo),
		Height:      Height(repo),
		BranchLines: make([]Line, 0, len(repo.Branches)),
		MergeLines:  make([]Line, 0, len(repo.Merges)),
		CommitMarks: make([]Circle, 0, len(repo.Commits)),
	}

	for _, b := range repo.Branches {
		x := columnX(b.Index)
		dm.BranchLines = append(dm.BranchLines, Line{
			X1: x, Y1: rowY(b.FirstIndex),
			X2: x, Y2: rowY(b.LastIndex),
			Width:  BranchLineWidth,
			Color:  BranchColor(b.Name),
			Branch: b.Name,
		})
	}

	for _, m := range repo.Merges {
		width := MergeLineWidth
		if m.IsBranch {
			width = BranchLineWidth
		}
		dm.MergeLines = append(dm.MergeLines, Line{
			X1: columnX(m.BranchIndex1), Y1: rowY(m.FirstCommitIndex),
			X2: columnX(m.BranchIndex2), Y2: rowY(m.LastCommitIndex),
			Width:  width,
			Color:  BranchColor(m.BranchName),
			Branch: m.BranchName,
		})
	}

	for _, c := range repo.Commits {
		radius := CommitRadius
		if c.IsMerge {
			radius = MergeRadius
		}
		dm.CommitMarks = append(dm.CommitMarks, Circle{
			X:      columnX(c.BranchIndex),
			Y:      rowY(c.Index),
			Radius: radius,
			Color:  BranchColor(c.BranchName),
			Commit: c.Index,
		})
	}

	return dm
}
