package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repoview/cli"
	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/pkg/graph"
	"github.com/grovetools/repoview/pkg/session"
	"github.com/grovetools/repoview/pkg/viewmodel"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// closeTimeout bounds the release of a session when a command ends.
const closeTimeout = 5 * time.Second

// NewLogCmd creates the `log` command.
func NewLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [path]",
		Short: "Print the commit graph of a repository",
		Long: `Opens the repository containing path (default: the working directory),
waits for the first snapshot and prints it as a text graph, then closes
the repository again.

Examples:
  # Graph of the current repository
  repoview log

  # Highlight commits matching a search, with authors and dates
  repoview log ~/src/project --search fix --details

  # View model and layout geometry as JSON
  repoview log --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogE,
	}
	cmd.Flags().Duration("timeout", 30*time.Second, "Time allowed for opening and the first snapshot")
	cmd.Flags().String("search", "", "Search text to apply before printing")
	cmd.Flags().Bool("details", false, "Show author and date of each commit")
	cmd.Flags().Int("width", 0, "Truncate lines to this width (default: terminal width)")
	cmd.Flags().String("color", "auto", "When to color the graph: auto, always, never")
	return cmd
}

type logOutput struct {
	Repo   *viewmodel.Repo `json:"repo"`
	Layout graph.DrawModel `json:"layout"`
}

func runLogE(cmd *cobra.Command, args []string) error {
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

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	updates := s.Subscribe()
	defer s.Unsubscribe(updates)

	if err := s.Open(ctx, path); err != nil {
		return err
	}
	repo, err := waitForRepo(ctx, s, updates, func(*viewmodel.Repo) bool { return true })
	if err != nil {
		return err
	}

	if text, _ := cmd.Flags().GetString("search"); text != "" {
		if err := s.Search(ctx, text); err != nil {
			return err
		}
		repo, err = waitForRepo(ctx, s, updates, func(r *viewmodel.Repo) bool { return r.SearchText == text })
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if cli.GetOptions(cmd).JSONOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(logOutput{Repo: repo, Layout: graph.Layout(repo)})
	}

	details, _ := cmd.Flags().GetBool("details")
	renderer, err := graphRenderer(cmd)
	if err != nil {
		return err
	}
	fmt.Fprint(out, graph.RenderText(repo, graph.TextOptions{
		Width:       outputWidth(cmd),
		Renderer:    renderer,
		HideDetails: !details,
	}))
	return nil
}

// waitForRepo returns the first view model satisfying cond.
func waitForRepo(ctx context.Context, s *session.Session, updates <-chan session.Update, cond func(*viewmodel.Repo) bool) (*viewmodel.Repo, error) {
	if repo := s.Repo(); repo != nil && cond(repo) {
		return repo, nil
	}
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return nil, errors.New(errors.ErrCodeInternal, "session updates closed")
			}
			if u.State == session.Errored {
				return nil, u.Err
			}
			if u.Repo != nil && cond(u.Repo) {
				return u.Repo, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for the repository snapshot: %w", ctx.Err())
		}
	}
}

func closeSession(s *session.Session, logger *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		logger.WithError(err).Warn("Failed to close the repository session cleanly")
	}
}

func graphRenderer(cmd *cobra.Command) (*lipgloss.Renderer, error) {
	out := cmd.OutOrStdout()
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "auto":
		return lipgloss.NewRenderer(out), nil
	case "always":
		return lipgloss.NewRenderer(out, termenv.WithProfile(termenv.TrueColor)), nil
	case "never":
		return lipgloss.NewRenderer(out, termenv.WithProfile(termenv.Ascii)), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "--color must be auto, always or never").
		WithDetail("value", mode)
}

// outputWidth is the --width flag, or the terminal width when writing to a
// terminal. Zero disables truncation.
func outputWidth(cmd *cobra.Command) int {
	if w, _ := cmd.Flags().GetInt("width"); w > 0 {
		return w
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
