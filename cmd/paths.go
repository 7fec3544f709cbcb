package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/repoview/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the XDG-compliant directories used by repoview.
type PathsOutput struct {
	ConfigDir string `json:"config_dir"`
	StateDir  string `json:"state_dir"`
	LogDir    string `json:"log_dir"`
}

// NewPathsCmd creates the `paths` command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the directories used by repoview",
		Long: `Print the directories used by repoview as JSON.

- config_dir: global repoview.yml
- state_dir: runtime state
- log_dir: file sink of the logging section`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(PathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				LogDir:    paths.LogDir(),
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
