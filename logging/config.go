package logging

// Config is the `logging` section of repoview.yml.
type Config struct {
	// Level is the minimum level to output ("debug", "info", "warn", "error").
	// REPOVIEW_LOG_LEVEL overrides it.
	Level string `yaml:"level"`

	// ReportCaller adds file, line and function to each entry.
	// REPOVIEW_LOG_CALLER=true enables it as well.
	ReportCaller bool `yaml:"report_caller"`

	File FileSinkConfig `yaml:"file"`

	Format FormatConfig `yaml:"format"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path of the log file. Defaults to <state dir>/logs/<component>-<date>.log.
	Path string `yaml:"path"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset is "default", "simple" or "json".
	Preset           string `yaml:"preset"`
	DisableTimestamp bool   `yaml:"disable_timestamp"`
	DisableComponent bool   `yaml:"disable_component"`
	// StructuredToStderr is "auto" (default), "always" or "never".
	// In auto mode logs reach stderr only when debugging or when stderr is not a terminal.
	StructuredToStderr string `yaml:"structured_to_stderr"`
}
