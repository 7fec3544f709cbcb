package rpc

import (
	"encoding/json"
	"testing"

	"github.com/grovetools/repoview/errors"
	"github.com/stretchr/testify/assert"
)

func TestParamEncoding(t *testing.T) {
	assert.Equal(t, []interface{}{0}, NoParam.encode())
	assert.False(t, NoParam.IsSet())

	p := Arg(map[string]string{"RepoID": "r1"})
	assert.True(t, p.IsSet())
	assert.Equal(t, []interface{}{map[string]string{"RepoID": "r1"}}, p.encode())

	// An explicit zero value is still an argument.
	assert.Equal(t, []interface{}{""}, Arg("").encode())
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name     string
		resp     string
		want     string
		wantCode errors.ErrorCode
	}{
		{name: "result", resp: `{"id":"1","result":{"a":1},"error":null}`, want: `{"a":1}`},
		{name: "null result", resp: `{"id":"1","result":null,"error":null}`, want: `null`},
		{name: "string error", resp: `{"id":"1","result":null,"error":"boom"}`, wantCode: errors.ErrCodeCallFailed},
		{name: "object error", resp: `{"id":"1","error":{"code":1,"message":"boom"}}`, wantCode: errors.ErrCodeCallFailed},
		{name: "bad object error", resp: `{"id":"1","error":{"code":"x"}}`, wantCode: errors.ErrCodeMalformedResponse},
		{name: "array error", resp: `{"id":"1","error":[1]}`, wantCode: errors.ErrCodeMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp Response
			assert.NoError(t, json.Unmarshal([]byte(tt.resp), &resp))

			raw, err := decodeResult("api.M", resp)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errors.GetCode(err))
				return
			}
			assert.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}
