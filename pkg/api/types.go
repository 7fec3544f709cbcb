// Package api holds the wire types of the repository backend and a typed
// client for its JSON-RPC methods.
package api

import "time"

// RepoChange is one change notification for an open repository, pushed on
// the event stream or returned by GetRepoChanges.
type RepoChange struct {
	// IsStarting marks the bootstrap notification sent while the repository
	// is still loading.
	IsStarting bool      `json:"IsStarting"`
	Error      *string   `json:"Error"`
	SearchText string    `json:"SearchText,omitempty"`
	ViewRepo   *ViewRepo `json:"ViewRepo"`
}

// HasError reports whether the notification carries an error.
func (c RepoChange) HasError() bool { return c.Error != nil }

// ViewRepo is a full snapshot of the repository as the backend wants it shown.
type ViewRepo struct {
	Commits            []Commit `json:"Commits"`
	CurrentBranchName  string   `json:"CurrentBranchName,omitempty"`
	RepoPath           string   `json:"RepoPath,omitempty"`
	UncommittedChanges int      `json:"UncommittedChanges,omitempty"`
	MergeMessage       string   `json:"MergeMessage,omitempty"`
	Conflicts          int      `json:"Conflicts,omitempty"`
}

// Commit is one row of a snapshot, newest first.
type Commit struct {
	ID            string    `json:"ID,omitempty"`
	SID           string    `json:"SID,omitempty"`
	Subject       string    `json:"Subject"`
	Message       string    `json:"Message,omitempty"`
	Author        string    `json:"Author"`
	AuthorTime    time.Time `json:"AuthorTime"`
	IsCurrent     bool      `json:"IsCurrent,omitempty"`
	Branch        Branch    `json:"Branch"`
	Tags          []string  `json:"Tags,omitempty"`
	ParentIDs     []string  `json:"ParentIDs,omitempty"`
	ChildIDs      []string  `json:"ChildIDs,omitempty"`
	IsLocalOnly   bool      `json:"IsLocalOnly,omitempty"`
	IsRemoteOnly  bool      `json:"IsRemoteOnly,omitempty"`
	IsUncommitted bool      `json:"IsUncommitted,omitempty"`
}

// Branch describes a branch and the display column the backend assigned it.
type Branch struct {
	Name          string `json:"Name"`
	DisplayName   string `json:"DisplayName,omitempty"`
	Index         int    `json:"Index"`
	IsMultiBranch bool   `json:"IsMultiBranch,omitempty"`
	RemoteName    string `json:"RemoteName,omitempty"`
	LocalName     string `json:"LocalName,omitempty"`
	IsRemote      bool   `json:"IsRemote,omitempty"`
	IsGitBranch   bool   `json:"IsGitBranch,omitempty"`
	IsCurrent     bool   `json:"IsCurrent,omitempty"`
	TipID         string `json:"TipID,omitempty"`
	HasLocalOnly  bool   `json:"HasLocalOnly,omitempty"`
	HasRemoteOnly bool   `json:"HasRemoteOnly,omitempty"`
}

// DiffMode classifies a file or line in a diff.
type DiffMode int

const (
	DiffModified DiffMode = iota
	DiffAdded
	DiffRemoved
	DiffSame
	DiffConflicts
	DiffConflictStart
	DiffConflictSplit
	DiffConflictEnd
)

// CommitDiff is the diff of one commit.
type CommitDiff struct {
	FileDiffs []FileDiff `json:"FileDiffs"`
}

type FileDiff struct {
	PathBefore   string        `json:"PathBefore"`
	PathAfter    string        `json:"PathAfter"`
	IsRenamed    bool          `json:"IsRenamed"`
	DiffMode     DiffMode      `json:"DiffMode"`
	SectionDiffs []SectionDiff `json:"SectionDiffs"`
}

type SectionDiff struct {
	ChangedIndexes string      `json:"ChangedIndexes"`
	LinesDiffs     []LinesDiff `json:"LinesDiffs"`
}

type LinesDiff struct {
	DiffMode DiffMode `json:"DiffMode"`
	Line     string   `json:"Line"`
}

// Request arguments.

type BranchName struct {
	RepoID     string `json:"RepoID"`
	BranchName string `json:"BranchName"`
}

type CheckoutReq struct {
	RepoID      string `json:"RepoID"`
	Name        string `json:"Name"`
	DisplayName string `json:"DisplayName"`
}

type Search struct {
	RepoID string `json:"RepoID"`
	Text   string `json:"Text"`
}

type GetBranchesReq struct {
	RepoID                    string `json:"RepoID"`
	IncludeOnlyCurrent        bool   `json:"IncludeOnlyCurrent,omitempty"`
	IncludeOnlyGitBranches    bool   `json:"IncludeOnlyGitBranches,omitempty"`
	IncludeOnlyCommitBranches string `json:"IncludeOnlyCommitBranches,omitempty"`
	IncludeOnlyShown          bool   `json:"IncludeOnlyShown,omitempty"`
	IncludeOnlyNotShown       bool   `json:"IncludeOnlyNotShown,omitempty"`
	SkipMaster                bool   `json:"SkipMaster,omitempty"`
	SortOnLatest              bool   `json:"SortOnLatest,omitempty"`
}

type CommitDiffInfoReq struct {
	RepoID   string `json:"RepoID"`
	CommitID string `json:"CommitID"`
}

type CommitInfoReq struct {
	RepoID  string `json:"RepoID"`
	Message string `json:"Message"`
}

type DeleteBranchReq struct {
	RepoID     string `json:"RepoID"`
	BranchName string `json:"BranchName"`
	IsForced   bool   `json:"IsForced"`
}
