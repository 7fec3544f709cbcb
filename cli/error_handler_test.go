package cli

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/grovetools/repoview/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandlerHints(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.ConnectFailed("ws://h:1/api/ws", fmt.Errorf("refused")), "Could not reach the backend at ws://h:1/api/ws"},
		{errors.TransportClosed(1006, ""), "closed the connection (code 1006)"},
		{errors.TransportClosed(4000, "bye"), "(code 4000, bye)"},
		{errors.SubscriptionFailed("http://h/e", fmt.Errorf("eof")), "--changes poll"},
		{errors.CallFailed("api.OpenRepo", 0, "not a repo"), "rejected the request: call api.OpenRepo failed: not a repo"},
		{errors.ConfigNotFound("/x.yml"), "Configuration not found: /x.yml"},
		{fmt.Errorf("plain"), "Error: plain"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		h := &ErrorHandler{Out: &buf}
		assert.Equal(t, tc.err, h.Handle(tc.err))
		assert.Contains(t, buf.String(), tc.want)
		assert.NotContains(t, buf.String(), "Error details")
	}
}

func TestErrorHandlerVerbose(t *testing.T) {
	var buf bytes.Buffer
	h := &ErrorHandler{Verbose: true, Out: &buf}
	h.Handle(errors.SessionBusy("live"))
	assert.Contains(t, buf.String(), "Error details")
	assert.Contains(t, buf.String(), `"code": "SESSION_BUSY"`)

	assert.NoError(t, h.Handle(nil))
}
