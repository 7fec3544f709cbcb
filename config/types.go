package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Changes modes select how repository change notifications are received.
const (
	ChangesModeEvents = "events"
	ChangesModePoll   = "poll"
)

// Config is the root repoview configuration.
type Config struct {
	Version string        `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Server  ServerConfig  `yaml:"server,omitempty" toml:"server,omitempty" json:"server,omitempty" jsonschema:"description=Connection parameters for the repository backend"`
	Session SessionConfig `yaml:"session,omitempty" toml:"session,omitempty" json:"session,omitempty" jsonschema:"description=Repository session behaviour"`

	// Extensions captures all other top-level keys, e.g. `logging`.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// ServerConfig locates the backend's RPC socket and event stream.
type ServerConfig struct {
	Host             string        `yaml:"host,omitempty" toml:"host,omitempty" json:"host,omitempty" jsonschema:"description=Backend host name"`
	TLS              bool          `yaml:"tls,omitempty" toml:"tls,omitempty" json:"tls,omitempty" jsonschema:"description=Use wss:// and https:// instead of ws:// and http://"`
	RPCPort          int           `yaml:"rpc_port,omitempty" toml:"rpc_port,omitempty" json:"rpc_port,omitempty" jsonschema:"minimum=1,maximum=65535,description=Port of the JSON-RPC WebSocket endpoint"`
	RPCPath          string        `yaml:"rpc_path,omitempty" toml:"rpc_path,omitempty" json:"rpc_path,omitempty" jsonschema:"description=Path of the JSON-RPC WebSocket endpoint"`
	EventsPort       int           `yaml:"events_port,omitempty" toml:"events_port,omitempty" json:"events_port,omitempty" jsonschema:"minimum=1,maximum=65535,description=Port of the event stream endpoint"`
	EventsPath       string        `yaml:"events_path,omitempty" toml:"events_path,omitempty" json:"events_path,omitempty" jsonschema:"description=Base path of the event stream to which the repository id is appended"`
	MethodPrefix     string        `yaml:"method_prefix,omitempty" toml:"method_prefix,omitempty" json:"method_prefix,omitempty" jsonschema:"description=Service name prepended to every RPC method"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout,omitempty" toml:"handshake_timeout,omitempty" json:"handshake_timeout,omitempty" jsonschema:"minimum=0,description=Timeout for the WebSocket handshake"`
}

// SessionConfig controls how a repository session receives changes.
type SessionConfig struct {
	ChangesMode    string        `yaml:"changes_mode,omitempty" toml:"changes_mode,omitempty" json:"changes_mode,omitempty" jsonschema:"enum=events,enum=poll,description=Receive changes from the event stream or by polling GetRepoChanges"`
	PollRetryDelay time.Duration `yaml:"poll_retry_delay,omitempty" toml:"poll_retry_delay,omitempty" json:"poll_retry_delay,omitempty" jsonschema:"minimum=0,description=Delay before polling again after a failed GetRepoChanges call"`
	Timezone       string        `yaml:"timezone,omitempty" toml:"timezone,omitempty" json:"timezone,omitempty" jsonschema:"description=IANA time zone used to format commit times (default: local)"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.RPCPort == 0 {
		c.Server.RPCPort = 9090
	}
	if c.Server.RPCPath == "" {
		c.Server.RPCPath = "/api/ws"
	}
	if c.Server.EventsPort == 0 {
		c.Server.EventsPort = c.Server.RPCPort
	}
	if c.Server.EventsPath == "" {
		c.Server.EventsPath = "/api/events"
	}
	if c.Server.MethodPrefix == "" {
		c.Server.MethodPrefix = "api"
	}
	if c.Server.HandshakeTimeout == 0 {
		c.Server.HandshakeTimeout = 10 * time.Second
	}
	if c.Session.ChangesMode == "" {
		c.Session.ChangesMode = ChangesModeEvents
	}
	if c.Session.PollRetryDelay == 0 {
		c.Session.PollRetryDelay = 2 * time.Second
	}
}

// RPCURL returns the WebSocket URL of the JSON-RPC endpoint.
func (s ServerConfig) RPCURL() string {
	scheme := "ws"
	if s.TLS {
		scheme = "wss"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", s.Host, s.RPCPort),
		Path:   s.RPCPath,
	}
	return u.String()
}

// EventsURL returns the event stream URL for one open repository.
func (s ServerConfig) EventsURL(repoID string) string {
	scheme := "http"
	if s.TLS {
		scheme = "https"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", s.Host, s.EventsPort),
		Path:   strings.TrimSuffix(s.EventsPath, "/") + "/" + repoID,
	}
	return u.String()
}

// Location returns the time zone used for commit times.
func (s SessionConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded repoview.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	decoder, err := newDecoder(target)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// newDecoder returns a mapstructure decoder keyed on `yaml` tags so YAML,
// TOML and extension sections share one set of field names.
func newDecoder(target interface{}) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
}
