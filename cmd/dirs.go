package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grovetools/repoview/cli"
	"github.com/spf13/cobra"
)

// NewDirsCmd creates the `dirs` command.
func NewDirsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirs [parent]",
		Short: "List recent repositories, or the subdirectories of parent",
		Long: `Without an argument, lists the working directories the backend opened
most recently. With a parent directory, lists its subdirectories as
the backend sees them.

Examples:
  repoview dirs
  repoview dirs ~/src --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDirsE,
	}
	cmd.Flags().Duration("timeout", 10*time.Second, "Time allowed for connecting and the call")
	return cmd
}

func runDirsE(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, tr, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer tr.Close()

	var dirs []string
	if len(args) == 0 {
		dirs, err = client.GetRecentWorkingDirs(ctx)
	} else {
		dirs, err = client.GetSubDirs(ctx, args[0])
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cli.GetOptions(cmd).JSONOutput {
		if dirs == nil {
			dirs = []string{}
		}
		return json.NewEncoder(out).Encode(dirs)
	}
	for _, dir := range dirs {
		fmt.Fprintln(out, dir)
	}
	return nil
}
