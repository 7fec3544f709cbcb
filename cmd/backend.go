package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/grovetools/repoview/cli"
	"github.com/grovetools/repoview/internal/fakebackend"
	"github.com/grovetools/repoview/logging"
	"github.com/grovetools/repoview/util/pathutil"
	"github.com/spf13/cobra"
)

// NewBackendCmd creates the `backend` command.
func NewBackendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend [path...]",
		Short: "Serve an in-memory demo backend",
		Long: `Serves the repository API over the configured endpoints with a sample
repository at each path (default: the working directory). Useful to try
the other commands without a real backend.

Examples:
  # Terminal 1
  repoview backend /demo --rpc-port 9091

  # Terminal 2
  repoview watch /demo --rpc-port 9091`,
		RunE: runBackendE,
	}
	cmd.Flags().Bool("error-objects", false, "Report failures as JSON-RPC 2.0 error objects")
	cmd.Flags().Duration("poll-timeout", 5*time.Second, "How long GetRepoChanges waits for a change")
	return cmd
}

func runBackendE(cmd *cobra.Command, args []string) error {
	logger := cli.GetLogger(cmd)
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Server.EventsPort != cfg.Server.RPCPort {
		return fmt.Errorf("the demo backend serves both endpoints on one port, got rpc %d and events %d",
			cfg.Server.RPCPort, cfg.Server.EventsPort)
	}

	errorObjects, _ := cmd.Flags().GetBool("error-objects")
	pollTimeout, _ := cmd.Flags().GetDuration("poll-timeout")
	srv := fakebackend.New(fakebackend.Options{
		RPCPath:      cfg.Server.RPCPath,
		EventsPath:   cfg.Server.EventsPath,
		MethodPrefix: cfg.Server.MethodPrefix,
		ErrorObjects: errorObjects,
		PollTimeout:  pollTimeout,
		Logger:       logging.NewLogger("backend"),
	})

	if len(args) == 0 {
		args = []string{"."}
	}
	parents := map[string][]string{}
	for i, arg := range args {
		path, err := pathutil.Canonical(arg)
		if err != nil {
			return err
		}
		args[i] = path
		srv.AddFixture(fakebackend.SampleFixture(path))
		parent := filepath.Dir(path)
		parents[parent] = append(parents[parent], path)
	}
	for parent, dirs := range parents {
		srv.SetSubDirs(parent, dirs)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.RPCPort)
	pretty := logging.NewPrettyLogger().WithWriter(cmd.ErrOrStderr())
	pretty.Success("Demo backend listening on " + addr)
	pretty.Field("rpc", cfg.Server.RPCURL())
	for _, arg := range args {
		pretty.Path("repo", arg)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Backend did not shut down cleanly")
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
