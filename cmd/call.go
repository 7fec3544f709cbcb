package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grovetools/repoview/cli"
	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/pkg/rpc"
	"github.com/spf13/cobra"
)

// NewCallCmd creates the `call` command.
func NewCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <method> [json-arg]",
		Short: "Call one backend RPC method and print the result",
		Long: `Sends a single JSON-RPC request. The method name is given without the
service prefix, which is taken from server.method_prefix. The optional
argument must be a JSON value.

Examples:
  # List recently opened repositories
  repoview call GetRecentWorkingDirs

  # Open a repository
  repoview call OpenRepo '"/home/me/src/project"'

  # Ask for a search on an open repository
  repoview call TriggerSearch '{"RepoID":"...","Text":"fix"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCallE,
	}
	cmd.Flags().Duration("timeout", 10*time.Second, "Time allowed for connecting and the call")
	return cmd
}

func runCallE(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}

	param := rpc.NoParam
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return errors.New(errors.ErrCodeInvalidInput, "argument is not valid JSON").
				WithDetail("value", args[1])
		}
		param = rpc.Arg(json.RawMessage(args[1]))
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	_, tr, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer tr.Close()

	raw, err := tr.Call(ctx, args[0], param)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return errors.MalformedResponse(args[0], err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return nil
}
