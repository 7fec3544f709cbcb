package events

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/repoview/errors"
	"github.com/grovetools/repoview/pkg/api"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransport(t *testing.T) *Transport {
	t.Helper()
	logger, _ := test.NewNullLogger()
	tr, err := New(Options{Logger: logrus.NewEntry(logger)})
	require.NoError(t, err)
	return tr
}

// streamServer writes the given raw SSE chunks, then holds the stream open
// until the client goes away unless hangUp is set.
func streamServer(t *testing.T, chunks []string, hangUp bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()
		for _, c := range chunks {
			fmt.Fprint(w, c)
			flusher.Flush()
		}
		if hangUp {
			return
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func receive(t *testing.T, ch <-chan api.RepoChange) api.RepoChange {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return api.RepoChange{}
}

func TestEventsDeliveredInOrder(t *testing.T) {
	srv := streamServer(t, []string{
		": keep-alive\n\n",
		"data: {\"IsStarting\": true, \"Error\": null, \"ViewRepo\": null}\n\n",
		"data: not json\n\n",
		"data: {\"Error\": null}\n\n",
		"event: change\ndata: {\"IsStarting\": false, \"Error\": null,\ndata: \"ViewRepo\": {\"Commits\": [{\"Subject\": \"a\", \"Author\": \"m\", \"AuthorTime\": \"2021-03-04T05:06:07Z\", \"Branch\": {\"Name\": \"main\", \"Index\": 0}}]}}\n\n",
		"data:{\"IsStarting\": false, \"Error\": \"locked\", \"ViewRepo\": null}\n\n",
	}, false)

	tr := newTransport(t)
	require.NoError(t, tr.Connect(context.Background(), srv.URL+"/r1"))
	defer tr.Close()
	assert.Equal(t, Connected, tr.State())

	ch := tr.Events()
	first := receive(t, ch)
	assert.True(t, first.IsStarting)

	second := receive(t, ch)
	require.NotNil(t, second.ViewRepo)
	require.Len(t, second.ViewRepo.Commits, 1)
	assert.Equal(t, "a", second.ViewRepo.Commits[0].Subject)

	third := receive(t, ch)
	require.NotNil(t, third.Error)
	assert.Equal(t, "locked", *third.Error)
}

func TestConnectRejectsBadResponses(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "{}")
	}))
	defer plain.Close()

	for _, url := range []string{notFound.URL, plain.URL, "http://127.0.0.1:1/unreachable"} {
		tr := newTransport(t)
		err := tr.Connect(context.Background(), url)
		require.Error(t, err, url)
		assert.True(t, errors.Is(err, errors.ErrCodeSubscriptionFailed), url)
		assert.Equal(t, Failed, tr.State())
		assert.NoError(t, tr.Close())
		assert.Equal(t, Disconnected, tr.State())
	}
}

func TestConnectHonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	tr := newTransport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := tr.Connect(ctx, srv.URL)
	assert.True(t, errors.Is(err, errors.ErrCodeSubscriptionFailed))
}

func TestStreamEndReportsErrorOnce(t *testing.T) {
	srv := streamServer(t, []string{
		"data: {\"IsStarting\": true, \"Error\": null, \"ViewRepo\": null}\n\n",
	}, true)

	tr := newTransport(t)
	var calls int32
	errCh := make(chan *errors.Error, 2)
	tr.OnError(func(err *errors.Error) {
		atomic.AddInt32(&calls, 1)
		errCh <- err
	})
	require.NoError(t, tr.Connect(context.Background(), srv.URL))

	ch := tr.Events()
	receive(t, ch)

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed")
	}

	select {
	case err := <-errCh:
		assert.Equal(t, errors.ErrCodeSubscriptionFailed, err.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("OnError not called")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Error(t, tr.Err())
	assert.Equal(t, Failed, tr.State())
}

func TestCloseEndsSubscriptionQuietly(t *testing.T) {
	srv := streamServer(t, nil, false)

	tr := newTransport(t)
	var calls int32
	tr.OnError(func(*errors.Error) { atomic.AddInt32(&calls, 1) })

	// Closing before connecting is a no-op.
	assert.NoError(t, tr.Close())
	assert.Nil(t, tr.Events())

	require.NoError(t, tr.Connect(context.Background(), srv.URL))
	ch := tr.Events()

	require.NoError(t, tr.Close())
	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, tr.Close())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.NoError(t, tr.Err())
	assert.Equal(t, Disconnected, tr.State())
}

func TestConnectTwice(t *testing.T) {
	srv := streamServer(t, nil, false)
	tr := newTransport(t)
	require.NoError(t, tr.Connect(context.Background(), srv.URL))
	defer tr.Close()

	err := tr.Connect(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, errors.ErrCodeSubscriptionFailed))
}
