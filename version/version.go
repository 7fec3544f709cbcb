// Package version reports the build and wire-protocol identity of repoview.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/grovetools/repoview/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	Branch    = "unknown"
	BuildDate = "unknown"
)

const (
	defaultModule = "github.com/grovetools/repoview"

	// RPCProtocol is how repoview calls the repository backend.
	RPCProtocol = "JSON-RPC 2.0 over WebSocket"
	// EventsProtocol is how repoview receives repository changes.
	EventsProtocol = "server-sent events, GetRepoChanges long-poll"
)

// Info describes the running binary.
type Info struct {
	Module         string `json:"module"`
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	Branch         string `json:"branch"`
	BuildDate      string `json:"buildDate"`
	RPCProtocol    string `json:"rpcProtocol"`
	EventsProtocol string `json:"eventsProtocol"`
	GoVersion      string `json:"goVersion"`
	Platform       string `json:"platform"`
}

// GetInfo returns the build information. Values not stamped by the linker
// are taken from the module build info when available.
func GetInfo() Info {
	info := Info{
		Module:         defaultModule,
		Version:        Version,
		Commit:         Commit,
		Branch:         Branch,
		BuildDate:      BuildDate,
		RPCProtocol:    RPCProtocol,
		EventsProtocol: EventsProtocol,
		GoVersion:      runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if bi.Main.Path != "" {
		info.Module = bi.Main.Path
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

// String formats the information as aligned "Label: value" lines.
func (i Info) String() string {
	rows := [][2]string{
		{"Module", i.Module},
		{"Version", i.Version},
		{"Commit", i.Commit},
		{"Branch", i.Branch},
		{"Build Date", i.BuildDate},
		{"RPC", i.RPCProtocol},
		{"Events", i.EventsProtocol},
		{"Go Version", i.GoVersion},
		{"Platform", i.Platform},
	}
	var b strings.Builder
	for n, row := range rows {
		if n > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-11s %s", row[0]+":", row[1])
	}
	return b.String()
}
