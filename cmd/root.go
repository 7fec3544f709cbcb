package cmd

import (
	"github.com/grovetools/repoview/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the repoview command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"repoview",
		"Browse the commit graph of a git repository served by a repository backend",
	)

	root.AddCommand(NewWatchCmd())
	root.AddCommand(NewLogCmd())
	root.AddCommand(NewCallCmd())
	root.AddCommand(NewDirsCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewPathsCmd())
	root.AddCommand(NewBackendCmd())
	root.AddCommand(cli.NewVersionCommand("repoview"))

	cli.ApplyStyledHelpRecursive(root)
	return root
}
