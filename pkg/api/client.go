package api

import (
	"context"
	"encoding/json"

	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/pkg/rpc"
)

// Client issues typed calls to the repository backend.
type Client struct {
	caller rpc.Caller
}

// NewClient returns a Client that sends its calls through caller.
func NewClient(caller rpc.Caller) *Client {
	return &Client{caller: caller}
}

// call invokes method and decodes the result into out unless out is nil.
func (c *Client) call(ctx context.Context, method string, param rpc.Param, out interface{}) error {
	raw, err := c.caller.Call(ctx, method, param)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.MalformedResponse(method, err)
	}
	return nil
}

// GetRecentWorkingDirs returns recently opened repository paths.
func (c *Client) GetRecentWorkingDirs(ctx context.Context) ([]string, error) {
	var dirs []string
	err := c.call(ctx, "GetRecentWorkingDirs", rpc.NoParam, &dirs)
	return dirs, err
}

// GetSubDirs lists the sub directories of parent. An empty parent asks the
// backend for recently used parent directories and volume roots.
func (c *Client) GetSubDirs(ctx context.Context, parent string) ([]string, error) {
	var dirs []string
	err := c.call(ctx, "GetSubDirs", rpc.Arg(parent), &dirs)
	return dirs, err
}

// OpenRepo opens the working tree containing path and returns its repo id.
func (c *Client) OpenRepo(ctx context.Context, path string) (string, error) {
	var repoID string
	if err := c.call(ctx, "OpenRepo", rpc.Arg(path), &repoID); err != nil {
		return "", err
	}
	if repoID == "" {
		return "", errors.MalformedResponse("OpenRepo", errors.New(errors.ErrCodeInvalidInput, "empty repo id"))
	}
	return repoID, nil
}

func (c *Client) CloseRepo(ctx context.Context, repoID string) error {
	return c.call(ctx, "CloseRepo", rpc.Arg(repoID), nil)
}

// GetRepoChanges waits for pending change notifications. The backend answers
// with an empty list when nothing happened within its own timeout.
func (c *Client) GetRepoChanges(ctx context.Context, repoID string) ([]RepoChange, error) {
	var changes []RepoChange
	err := c.call(ctx, "GetRepoChanges", rpc.Arg(repoID), &changes)
	return changes, err
}

// TriggerRefreshRepo asks the backend to emit a fresh snapshot.
func (c *Client) TriggerRefreshRepo(ctx context.Context, repoID string) error {
	return c.call(ctx, "TriggerRefreshRepo", rpc.Arg(repoID), nil)
}

func (c *Client) TriggerSearch(ctx context.Context, search Search) error {
	return c.call(ctx, "TriggerSearch", rpc.Arg(search), nil)
}

func (c *Client) GetBranches(ctx context.Context, req GetBranchesReq) ([]Branch, error) {
	var branches []Branch
	err := c.call(ctx, "GetBranches", rpc.Arg(req), &branches)
	return branches, err
}

func (c *Client) GetCommitDiff(ctx context.Context, req CommitDiffInfoReq) (CommitDiff, error) {
	var diff CommitDiff
	err := c.call(ctx, "GetCommitDiff", rpc.Arg(req), &diff)
	return diff, err
}

func (c *Client) Commit(ctx context.Context, req CommitInfoReq) error {
	return c.call(ctx, "Commit", rpc.Arg(req), nil)
}

func (c *Client) ShowBranch(ctx context.Context, name BranchName) error {
	return c.call(ctx, "ShowBranch", rpc.Arg(name), nil)
}

func (c *Client) HideBranch(ctx context.Context, name BranchName) error {
	return c.call(ctx, "HideBranch", rpc.Arg(name), nil)
}

func (c *Client) Checkout(ctx context.Context, req CheckoutReq) error {
	return c.call(ctx, "Checkout", rpc.Arg(req), nil)
}

func (c *Client) PushBranch(ctx context.Context, name BranchName) error {
	return c.call(ctx, "PushBranch", rpc.Arg(name), nil)
}

func (c *Client) PullCurrentBranch(ctx context.Context, repoID string) error {
	return c.call(ctx, "PullCurrentBranch", rpc.Arg(repoID), nil)
}

func (c *Client) MergeBranch(ctx context.Context, name BranchName) error {
	return c.call(ctx, "MergeBranch", rpc.Arg(name), nil)
}

func (c *Client) CreateBranch(ctx context.Context, name BranchName) error {
	return c.call(ctx, "CreateBranch", rpc.Arg(name), nil)
}

func (c *Client) DeleteBranch(ctx context.Context, req DeleteBranchReq) error {
	return c.call(ctx, "DeleteBranch", rpc.Arg(req), nil)
}
