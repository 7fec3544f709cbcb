package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/repoview/cli"
	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/logging"
	"github.com/grovetools/repoview/pkg/session"
	"github.com/grovetools/repoview/pkg/viewmodel"
	"github.com/grovetools/repoview/tui/repoview"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the `watch` command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Follow a repository live",
		Long: `Opens the repository containing path (default: the working directory)
and redraws its commit graph on every change. When stdout is not a
terminal, or with --json, every session update is printed as one JSON
line instead.

Examples:
  # Interactive view
  repoview watch ~/src/project

  # Stream updates for another program, polling instead of events
  repoview watch --json --changes poll`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatchE,
	}
	cmd.Flags().Duration("timeout", 30*time.Second, "Time allowed for each request to the backend")
	cmd.Flags().Bool("details", false, "Show author and date of each commit")
	return cmd
}

// watchLine is one update in JSON lines output.
type watchLine struct {
	Time  time.Time       `json:"time"`
	State string          `json:"state"`
	Error string          `json:"error,omitempty"`
	Repo  *viewmodel.Repo `json:"repo,omitempty"`
}

func runWatchE(cmd *cobra.Command, args []string) error {
	logger := cli.GetLogger(cmd)
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	path, err := repoPath(args)
	if err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer closeSession(s, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	watchConfigFile(ctx, cmd, logger)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	out := cmd.OutOrStdout()
	if cli.GetOptions(cmd).JSONOutput || !isTerminal(out) {
		return streamUpdates(ctx, s, path, timeout, out)
	}

	details, _ := cmd.Flags().GetBool("details")
	model := repoview.New(s, path, repoview.Options{Timeout: timeout, ShowDetails: details})
	defer model.Release()

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return model.Err()
}

// streamUpdates opens path and writes every update as a JSON line until ctx
// ends or the session fails.
func streamUpdates(ctx context.Context, s *session.Session, path string, timeout time.Duration, out io.Writer) error {
	updates := s.Subscribe()
	defer s.Unsubscribe(updates)

	openCtx, cancel := context.WithTimeout(ctx, timeout)
	err := s.Open(openCtx, path)
	cancel()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			line := watchLine{Time: time.Now().UTC(), State: u.State.String(), Repo: u.Repo}
			if u.Err != nil {
				line.Error = u.Err.Error()
			}
			if err := enc.Encode(line); err != nil {
				return err
			}
			if u.State == session.Errored {
				return u.Err
			}
		}
	}
}

// watchConfigFile applies logging changes from the config file while the
// command runs. Connection changes take effect on the next run.
func watchConfigFile(ctx context.Context, cmd *cobra.Command, logger *logrus.Entry) {
	path, err := cli.InitConfig(cli.GetOptions(cmd).ConfigFile)
	if err != nil || path == "" {
		return
	}
	w, err := config.NewWatcher(path, 0, logger, func(cfg *config.Config, err error) {
		if err != nil {
			logger.WithError(err).Warn("Ignoring invalid configuration change")
			return
		}
		var logCfg logging.Config
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil || logCfg.Level == "" {
			return
		}
		if level, err := logrus.ParseLevel(logCfg.Level); err == nil {
			logging.SetLevel(level)
			logger.WithField("level", level).Info("Log level reloaded")
		}
	})
	if err != nil {
		logger.WithError(err).Debug("Configuration file is not watched")
		return
	}
	go w.Start(ctx)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
