package config

import (
	"fmt"
	"strings"

	"github.com/grovetools/repoview/errors"
)

// Validate checks the semantic rules the schema cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New(errors.ErrCodeConfigValidation, "server.host cannot be empty")
	}

	for field, path := range map[string]string{
		"server.rpc_path":    c.Server.RPCPath,
		"server.events_path": c.Server.EventsPath,
	} {
		if !strings.HasPrefix(path, "/") {
			return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s must start with '/'", field)).
				WithDetail("value", path)
		}
	}

	if strings.ContainsAny(c.Server.MethodPrefix, ". ") {
		return errors.New(errors.ErrCodeConfigValidation, "server.method_prefix must not contain dots or spaces").
			WithDetail("value", c.Server.MethodPrefix)
	}

	switch c.Session.ChangesMode {
	case ChangesModeEvents, ChangesModePoll:
	default:
		return errors.New(errors.ErrCodeConfigValidation, "session.changes_mode must be 'events' or 'poll'").
			WithDetail("value", c.Session.ChangesMode)
	}

	if _, err := c.Session.Location(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid session.timezone").
			WithDetail("value", c.Session.Timezone)
	}

	return nil
}
