package fakebackend

import (
	"time"

	"github.com/grovetools/repoview/pkg/api"
)

// SampleFixture is a small repository at path: main with a feature branch
// that was merged back.
func SampleFixture(path string) Fixture {
	base := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	main := api.Branch{Name: "main", DisplayName: "main", Index: 0, IsGitBranch: true}
	feature := api.Branch{Name: "feature", DisplayName: "feature", Index: 1, IsGitBranch: true}
	commit := func(id, subject string, branch api.Branch, hours int, parents ...string) api.Commit {
		return api.Commit{
			ID:         id,
			SID:        id,
			Subject:    subject,
			Message:    subject,
			Author:     "Jane Doe",
			AuthorTime: base.Add(time.Duration(hours) * time.Hour),
			Branch:     branch,
			ParentIDs:  parents,
		}
	}
	head := commit("m2", "Merge branch 'feature'", main, 4, "m1", "f2")
	head.IsCurrent = true
	return Fixture{
		Path:               path,
		CurrentBranchName:  "main",
		UncommittedChanges: 1,
		Commits: []api.Commit{
			head,
			commit("f2", "Finish feature", feature, 3, "f1"),
			commit("m1", "Fix typo", main, 2, "m0"),
			commit("f1", "Start feature", feature, 1, "m0"),
			commit("m0", "Initial commit", main, 0),
		},
	}
}

// SingleCommitFixture is a repository at path holding one commit.
func SingleCommitFixture(path, subject string) Fixture {
	return Fixture{
		Path:              path,
		CurrentBranchName: "main",
		Commits: []api.Commit{{
			ID:         "c1",
			SID:        "c1",
			Subject:    subject,
			Author:     "m",
			AuthorTime: time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC),
			Branch:     api.Branch{Name: "main", Index: 0},
			IsCurrent:  true,
		}},
	}
}
