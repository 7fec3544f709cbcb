// Package viewmodel folds repository change notifications into immutable
// view models ready for layout.
package viewmodel

import (
	"sort"
	"sync"
	"time"

	"github.com/grovetools/repoview/pkg/api"
)

// DatetimeLayout is the format of Commit.Datetime.
const DatetimeLayout = "2006-01-02 15:04"

// Repo is one snapshot of the repository as it should be displayed. A Repo is
// never modified after Reconcile returns it.
type Repo struct {
	Commits  []Commit `json:"commits"`
	Branches []Branch `json:"branches"`
	Merges   []Merge  `json:"merges"`

	CurrentBranchName  string `json:"currentBranchName,omitempty"`
	RepoPath           string `json:"repoPath,omitempty"`
	UncommittedChanges int    `json:"uncommittedChanges,omitempty"`
	MergeMessage       string `json:"mergeMessage,omitempty"`
	Conflicts          int    `json:"conflicts,omitempty"`
	SearchText         string `json:"searchText,omitempty"`
}

// Commit is one row. Index 0 is the newest commit.
type Commit struct {
	Index         int      `json:"index"`
	ID            string   `json:"id,omitempty"`
	SID           string   `json:"sid,omitempty"`
	Subject       string   `json:"subject"`
	Author        string   `json:"author"`
	Datetime      string   `json:"datetime"`
	BranchName    string   `json:"branchName"`
	BranchIndex   int      `json:"branchIndex"`
	IsMerge       bool     `json:"isMerge"`
	IsCurrent     bool     `json:"isCurrent,omitempty"`
	IsUncommitted bool     `json:"isUncommitted,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Branch is a display column spanning the rows of its commits.
type Branch struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	FirstIndex int    `json:"firstIndex"`
	LastIndex  int    `json:"lastIndex"`
}

// Merge connects a commit to a parent on another column. IsBranch marks the
// point where a branch leaves its base; otherwise it is a merge into the child.
type Merge struct {
	BranchName       string `json:"branchName"`
	BranchIndex1     int    `json:"branchIndex1"`
	FirstCommitIndex int    `json:"firstCommitIndex"`
	BranchIndex2     int    `json:"branchIndex2"`
	LastCommitIndex  int    `json:"lastCommitIndex"`
	IsBranch         bool   `json:"isBranch"`
}

// Reconcile folds events in order and returns the model built from the last
// usable snapshot. Starting notifications, notifications carrying an error
// and notifications without a snapshot are skipped. It returns false when
// every event was skipped.
func Reconcile(events []api.RepoChange, loc *time.Location) (*Repo, bool) {
	if loc == nil {
		loc = time.Local
	}
	var repo *Repo
	for _, ev := range events {
		if ev.IsStarting || ev.HasError() || ev.ViewRepo == nil {
			continue
		}
		repo = fromViewRepo(ev.ViewRepo, ev.SearchText, loc)
	}
	return repo, repo != nil
}

type branchKey struct {
	name  string
	index int
}

func fromViewRepo(vr *api.ViewRepo, searchText string, loc *time.Location) *Repo {
	repo := &Repo{
		Commits:            make([]Commit, len(vr.Commits)),
		Branches:           []Branch{},
		Merges:             []Merge{},
		CurrentBranchName:  vr.CurrentBranchName,
		RepoPath:           vr.RepoPath,
		UncommittedChanges: vr.UncommittedChanges,
		MergeMessage:       vr.MergeMessage,
		Conflicts:          vr.Conflicts,
		SearchText:         searchText,
	}

	rows := make(map[string]int, len(vr.Commits))
	extents := make(map[branchKey]*Branch)
	for i, c := range vr.Commits {
		repo.Commits[i] = Commit{
			Index:         i,
			ID:            c.ID,
			SID:           c.SID,
			Subject:       c.Subject,
			Author:        c.Author,
			Datetime:      c.AuthorTime.In(loc).Format(DatetimeLayout),
			BranchName:    c.Branch.Name,
			BranchIndex:   c.Branch.Index,
			IsMerge:       len(c.ParentIDs) > 1,
			IsCurrent:     c.IsCurrent,
			IsUncommitted: c.IsUncommitted,
			Tags:          append([]string(nil), c.Tags...),
		}
		if c.ID != "" {
			rows[c.ID] = i
		}

		key := branchKey{name: c.Branch.Name, index: c.Branch.Index}
		if b, ok := extents[key]; ok {
			b.LastIndex = i
		} else {
			extents[key] = &Branch{Index: key.index, Name: key.name, FirstIndex: i, LastIndex: i}
		}
	}

	for _, b := range extents {
		repo.Branches = append(repo.Branches, *b)
	}
	sort.Slice(repo.Branches, func(i, j int) bool {
		bi, bj := repo.Branches[i], repo.Branches[j]
		if bi.Index != bj.Index {
			return bi.Index < bj.Index
		}
		return bi.FirstIndex < bj.FirstIndex
	})

	for i, c := range vr.Commits {
		child := repo.Commits[i]
		for n, parentID := range c.ParentIDs {
			row, ok := rows[parentID]
			if !ok {
				// Parent outside the snapshot.
				continue
			}
			parent := repo.Commits[row]
			sameBranch := parent.BranchName == child.BranchName && parent.BranchIndex == child.BranchIndex

			switch {
			case n == 0 && !sameBranch:
				repo.Merges = append(repo.Merges, Merge{
					BranchName:       child.BranchName,
					BranchIndex1:     child.BranchIndex,
					FirstCommitIndex: child.Index,
					BranchIndex2:     parent.BranchIndex,
					LastCommitIndex:  parent.Index,
					IsBranch:         true,
				})
			case n > 0:
				repo.Merges = append(repo.Merges, Merge{
					BranchName:       parent.BranchName,
					BranchIndex1:     child.BranchIndex,
					FirstCommitIndex: child.Index,
					BranchIndex2:     parent.BranchIndex,
					LastCommitIndex:  parent.Index,
				})
			}
		}
	}

	return repo
}

// Reconciler keeps the last good model across batches of events.
type Reconciler struct {
	loc *time.Location

	mu   sync.RWMutex
	last *Repo
}

// NewReconciler returns a Reconciler formatting times in loc.
func NewReconciler(loc *time.Location) *Reconciler {
	return &Reconciler{loc: loc}
}

// Apply folds events. It returns the new model and true when the batch
// produced one; otherwise the previous model and false.
func (r *Reconciler) Apply(events ...api.RepoChange) (*Repo, bool) {
	repo, ok := Reconcile(events, r.loc)

	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.last = repo
	}
	return r.last, ok
}

// Repo returns the last good model, or nil.
func (r *Reconciler) Repo() *Repo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Reset forgets the last model.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = nil
}
