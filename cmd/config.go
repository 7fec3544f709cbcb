package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/repoview/cli"
	"github.com/grovetools/repoview/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the repoview configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(cli.NewSchemaCommand("schema", "Print the JSON schema of repoview.yml", config.GenerateSchema))
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Shows the configuration after defaults, the config file and the
connection flags have been applied.

Examples:
  # Show the configuration as YAML
  repoview config show

  # Show the endpoints for another backend as JSON
  repoview config show --host build-box --rpc-port 7000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					*config.Config
					RPCURL    string `json:"rpc_url"`
					EventsURL string `json:"events_url"`
				}{cfg, cfg.Server.RPCURL(), cfg.Server.EventsURL("REPO_ID")})
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintf(out, "# rpc: %s\n# events: %s\n", cfg.Server.RPCURL(), cfg.Server.EventsURL("REPO_ID"))
			fmt.Fprint(out, string(data))
			return nil
		},
	}
}
