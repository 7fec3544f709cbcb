package testutil

import (
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/internal/fakebackend"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// Backend is a running in-process backend and the configuration that
// points at it.
type Backend struct {
	*fakebackend.Server
	Config *config.Config
	URL    string
}

// StartBackend serves a fake backend on a loopback port until the test ends.
func StartBackend(t *testing.T, opts fakebackend.Options) *Backend {
	t.Helper()

	if opts.Logger == nil {
		opts.Logger = NullLogger()
	}
	srv := fakebackend.New(opts)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.DropConnections(0, "")
		hs.Close()
	})

	u, err := url.Parse(hs.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.Host = host
	cfg.Server.RPCPort = port
	cfg.Server.EventsPort = port
	cfg.Server.HandshakeTimeout = 5 * time.Second
	if opts.RPCPath != "" {
		cfg.Server.RPCPath = opts.RPCPath
	}
	if opts.EventsPath != "" {
		cfg.Server.EventsPath = opts.EventsPath
	}
	if opts.MethodPrefix != "" {
		cfg.Server.MethodPrefix = opts.MethodPrefix
	}
	cfg.Session.Timezone = "UTC"

	return &Backend{Server: srv, Config: cfg, URL: hs.URL}
}

// NullLogger returns a logger entry that discards everything.
func NullLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

// WaitFor polls cond until it holds or timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
