package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfoDescribesProtocols(t *testing.T) {
	info := GetInfo()
	assert.NotEmpty(t, info.Module)
	assert.Equal(t, RPCProtocol, info.RPCProtocol)
	assert.Equal(t, EventsProtocol, info.EventsProtocol)
	assert.Contains(t, info.Platform, "/")
}

func TestStringAlignsLabels(t *testing.T) {
	info := Info{
		Module:         "github.com/grovetools/repoview",
		Version:        "v1.2.3",
		RPCProtocol:    RPCProtocol,
		EventsProtocol: EventsProtocol,
	}
	lines := strings.Split(info.String(), "\n")
	assert.Len(t, lines, 9)
	assert.Equal(t, "Module:     github.com/grovetools/repoview", lines[0])
	assert.Equal(t, "Version:    v1.2.3", lines[1])
	assert.Equal(t, "RPC:        JSON-RPC 2.0 over WebSocket", lines[5])
}
