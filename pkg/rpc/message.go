// Package rpc implements a JSON-RPC client over a persistent WebSocket.
//
// Requests carry a fresh correlation id and their parameter wrapped in a
// one-element array, as expected by Go's net/rpc/jsonrpc server codec.
// Responses are accepted in both JSON-RPC 2.0 form (error object) and the
// 1.0 form produced by net/rpc/jsonrpc (error string).
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/grovetools/repoview/errors"
)

// Caller is implemented by anything that can issue a JSON-RPC call.
type Caller interface {
	Call(ctx context.Context, method string, param Param) (json.RawMessage, error)
}

// noArg is sent when a method takes no argument; the server codec requires
// exactly one element in params.
var noArg = []interface{}{0}

// Param is an optional call argument.
type Param struct {
	value interface{}
	set   bool
}

// NoParam is the Param of methods that take no argument.
var NoParam = Param{}

// Arg wraps v as the single call argument.
func Arg(v interface{}) Param {
	return Param{value: v, set: true}
}

// IsSet reports whether the param carries an argument.
func (p Param) IsSet() bool { return p.set }

func (p Param) encode() []interface{} {
	if !p.set {
		return noArg
	}
	return []interface{}{p.value}
}

// Request is an outgoing JSON-RPC request.
type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Response is an incoming JSON-RPC response.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// ErrorObject is the JSON-RPC 2.0 error member.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var jsonNull = []byte("null")

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull)
}

// decodeResult turns a response into the call outcome.
func decodeResult(method string, resp Response) (json.RawMessage, error) {
	if isAbsent(resp.Error) {
		if isAbsent(resp.Result) {
			return json.RawMessage(jsonNull), nil
		}
		return resp.Result, nil
	}

	switch bytes.TrimSpace(resp.Error)[0] {
	case '"':
		var msg string
		if err := json.Unmarshal(resp.Error, &msg); err != nil {
			return nil, errors.MalformedResponse(method, err)
		}
		return nil, errors.CallFailed(method, 0, msg)
	case '{':
		var obj ErrorObject
		if err := json.Unmarshal(resp.Error, &obj); err != nil {
			return nil, errors.MalformedResponse(method, err)
		}
		return nil, errors.CallFailed(method, obj.Code, obj.Message)
	default:
		return nil, errors.MalformedResponse(method, fmt.Errorf("unexpected error member %s", string(resp.Error)))
	}
}
