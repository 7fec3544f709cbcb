package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/repoview/pkg/api"
)

// decode unmarshals the single call argument into v.
func decode(param json.RawMessage, v interface{}) error {
	if len(param) == 0 {
		return fmt.Errorf("missing argument")
	}
	if err := json.Unmarshal(param, v); err != nil {
		return fmt.Errorf("invalid argument: %w", err)
	}
	return nil
}

// withArg adapts a handler taking a decoded argument.
func withArg[T any](fn func(ctx context.Context, arg T) (interface{}, error)) handlerFunc {
	return func(ctx context.Context, param json.RawMessage) (interface{}, error) {
		var arg T
		if err := decode(param, &arg); err != nil {
			return nil, err
		}
		return fn(ctx, arg)
	}
}

// noResult adapts an action that answers null.
func noResult[T any](fn func(arg T) error) handlerFunc {
	return withArg(func(_ context.Context, arg T) (interface{}, error) {
		return nil, fn(arg)
	})
}

func (s *Server) methods() map[string]handlerFunc {
	st := s.store
	return map[string]handlerFunc{
		"GetRecentWorkingDirs": func(context.Context, json.RawMessage) (interface{}, error) {
			return st.recentDirs(), nil
		},
		"GetSubDirs": withArg(func(_ context.Context, parent string) (interface{}, error) {
			return st.getSubDirs(parent)
		}),
		"OpenRepo": withArg(func(_ context.Context, path string) (interface{}, error) {
			return st.open(path)
		}),
		"CloseRepo": noResult(st.close),
		"GetRepoChanges": withArg(func(ctx context.Context, repoID string) (interface{}, error) {
			return st.drain(repoID, s.opts.PollTimeout, ctx.Done())
		}),
		"TriggerRefreshRepo": noResult(st.refresh),
		"TriggerSearch": noResult(func(req api.Search) error {
			return st.update(req.RepoID, func(r *openRepo) error {
				r.search = req.Text
				return nil
			})
		}),
		"GetBranches": withArg(func(_ context.Context, req api.GetBranchesReq) (interface{}, error) {
			return st.branches(req.RepoID)
		}),
		"GetCommitDiff": withArg(func(_ context.Context, req api.CommitDiffInfoReq) (interface{}, error) {
			return commitDiff(st, req)
		}),
		"Commit": noResult(func(req api.CommitInfoReq) error {
			return st.update(req.RepoID, func(r *openRepo) error {
				return r.commit(req.Message)
			})
		}),
		"ShowBranch":   noResult(func(req api.BranchName) error { return st.touch(req.RepoID) }),
		"HideBranch":   noResult(func(req api.BranchName) error { return st.touch(req.RepoID) }),
		"PushBranch":   noResult(func(req api.BranchName) error { return st.touch(req.RepoID) }),
		"MergeBranch":  noResult(func(req api.BranchName) error { return st.touch(req.RepoID) }),
		"CreateBranch": noResult(func(req api.BranchName) error { return st.touch(req.RepoID) }),
		"DeleteBranch": noResult(func(req api.DeleteBranchReq) error {
			return st.update(req.RepoID, func(r *openRepo) error {
				if req.BranchName == r.fixture.CurrentBranchName {
					return fmt.Errorf("cannot delete the current branch %s", req.BranchName)
				}
				return nil
			})
		}),
		"PullCurrentBranch": noResult(st.touch),
		"Checkout": noResult(func(req api.CheckoutReq) error {
			return st.update(req.RepoID, func(r *openRepo) error {
				for _, c := range r.fixture.Commits {
					if c.Branch.Name == req.Name {
						r.fixture.CurrentBranchName = req.Name
						return nil
					}
				}
				return fmt.Errorf("unknown branch %s", req.Name)
			})
		}),
	}
}

// touch republishes the snapshot of repoID unchanged.
func (s *store) touch(repoID string) error {
	return s.update(repoID, func(*openRepo) error { return nil })
}

// commit records the uncommitted changes as a new commit on the current branch.
func (r *openRepo) commit(message string) error {
	if r.fixture.UncommittedChanges == 0 {
		return fmt.Errorf("nothing to commit")
	}
	c := api.Commit{
		ID:         uuid.NewString(),
		Subject:    message,
		Message:    message,
		Author:     "fake",
		AuthorTime: time.Now(),
	}
	for i, prev := range r.fixture.Commits {
		if prev.Branch.Name == r.fixture.CurrentBranchName {
			c.Branch = prev.Branch
			c.ParentIDs = []string{prev.ID}
			r.fixture.Commits[i].IsCurrent = false
			break
		}
	}
	c.IsCurrent = true
	c.SID = c.ID[:6]
	r.fixture.Commits = append([]api.Commit{c}, r.fixture.Commits...)
	r.fixture.UncommittedChanges = 0
	return nil
}

func commitDiff(st *store, req api.CommitDiffInfoReq) (api.CommitDiff, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	r, ok := st.repos[req.RepoID]
	if !ok {
		return api.CommitDiff{}, unknownRepo(req.RepoID)
	}
	for _, c := range r.fixture.Commits {
		if c.ID != req.CommitID {
			continue
		}
		return api.CommitDiff{FileDiffs: []api.FileDiff{{
			PathBefore: "README.md",
			PathAfter:  "README.md",
			DiffMode:   api.DiffModified,
			SectionDiffs: []api.SectionDiff{{
				ChangedIndexes: "1",
				LinesDiffs: []api.LinesDiff{
					{DiffMode: api.DiffRemoved, Line: "old"},
					{DiffMode: api.DiffAdded, Line: c.Subject},
				},
			}},
		}}}, nil
	}
	return api.CommitDiff{}, fmt.Errorf("unknown commit %s", req.CommitID)
}
