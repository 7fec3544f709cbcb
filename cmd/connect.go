package cmd

import (
	"context"

	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/logging"
	"github.com/grovetools/repoview/pkg/api"
	"github.com/grovetools/repoview/pkg/events"
	"github.com/grovetools/repoview/pkg/rpc"
	"github.com/grovetools/repoview/pkg/session"
	"github.com/grovetools/repoview/util/pathutil"
)

func newTransport(cfg *config.Config) *rpc.Transport {
	return rpc.New(rpc.Options{
		MethodPrefix:     cfg.Server.MethodPrefix,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		Logger:           logging.NewLogger("rpc"),
	})
}

// dial opens an RPC connection for one-shot commands. The caller closes the
// returned transport.
func dial(ctx context.Context, cfg *config.Config) (*api.Client, *rpc.Transport, error) {
	tr := newTransport(cfg)
	if err := tr.Open(ctx, cfg.Server.RPCURL()); err != nil {
		return nil, nil, err
	}
	return api.NewClient(tr), tr, nil
}

// newSession builds an idle session for the configured change mode.
func newSession(cfg *config.Config) (*session.Session, error) {
	var factory session.EventsFactory
	if cfg.Session.ChangesMode != config.ChangesModePoll {
		factory = session.NewEventsFactory(events.Options{Logger: logging.NewLogger("events")})
	}
	return session.New(cfg, newTransport(cfg), factory)
}

// repoPath resolves the optional path argument, which defaults to the
// working directory.
func repoPath(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	return pathutil.Canonical(path)
}
