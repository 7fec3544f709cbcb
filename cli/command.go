package cli

import (
	"os"

	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandOptions holds the standard flags shared by every command.
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a command carrying the standard flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to repoview.yml config file")
	cmd.PersistentFlags().AddFlagSet(ConnectionFlags())

	SetStyledHelp(cmd)
	return cmd
}

// ConnectionFlags returns the flags that override the server section of the
// configuration. Zero values leave the configured value untouched.
func ConnectionFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("connection", pflag.ContinueOnError)
	fs.String("host", "", "Backend host name")
	fs.Int("rpc-port", 0, "Port of the JSON-RPC WebSocket endpoint")
	fs.Int("events-port", 0, "Port of the event stream endpoint")
	fs.String("changes", "", "How changes are received: events, poll")
	return fs
}

// GetLogger returns the CLI logger configured from the standard flags.
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	entry := logging.NewLogger("repoview-cli")

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logging.SetLevel(logrus.DebugLevel)
	}
	return entry
}

// GetOptions extracts the standard options from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// InitConfig resolves the configuration file path. An empty result means no
// file was found and defaults apply.
func InitConfig(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	found, err := config.FindConfigFile(cwd)
	if err != nil {
		return "", nil
	}
	return found, nil
}

// LoadConfig loads the configuration named by --config, or discovered from
// the working directory, and applies the connection flags on top.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := InitConfig(GetOptions(cmd).ConfigFile)
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(path); err != nil {
		return nil, err
	}

	if err := ApplyConnectionFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyConnectionFlags copies explicitly set connection flags into cfg and
// validates the result.
func ApplyConnectionFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("host") {
		cfg.Server.Host, _ = fs.GetString("host")
	}
	if fs.Changed("rpc-port") {
		cfg.Server.RPCPort, _ = fs.GetInt("rpc-port")
		if !fs.Changed("events-port") {
			cfg.Server.EventsPort = cfg.Server.RPCPort
		}
	}
	if fs.Changed("events-port") {
		cfg.Server.EventsPort, _ = fs.GetInt("events-port")
	}
	if fs.Changed("changes") {
		cfg.Session.ChangesMode, _ = fs.GetString("changes")
	}
	return cfg.Validate()
}
