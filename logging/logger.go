package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/repoview/config"
	"github.com/grovetools/repoview/pkg/paths"
	"github.com/grovetools/repoview/util/pathutil"
	"github.com/grovetools/repoview/util/sanitize"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers       = make(map[string]*componentLogger)
	loggersMu     sync.Mutex
	levelOverride *logrus.Level
)

// componentLogger remembers how a component logger was configured so its
// level and sinks can be changed after creation.
type componentLogger struct {
	entry       *logrus.Entry
	cfg         Config
	file        io.Writer
	interactive bool
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// Loggers are cached per component.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, exists := loggers[component]; exists {
		return l.entry
	}

	var logCfg Config
	if cfg, err := config.LoadDefault(); err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	fd := os.Stderr.Fd()
	l := newComponentLogger(component, logCfg, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
	loggers[component] = l
	return l.entry
}

// SetLevel changes the level of every existing and future component logger.
// It takes precedence over repoview.yml and REPOVIEW_LOG_LEVEL.
func SetLevel(level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	levelOverride = &level
	for _, l := range loggers {
		l.apply(level)
	}
}

func newComponentLogger(component string, logCfg Config, interactive bool) *componentLogger {
	logger := logrus.New()

	if os.Getenv("REPOVIEW_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	l := &componentLogger{
		entry:       logger.WithField("component", component),
		cfg:         logCfg,
		interactive: interactive,
	}

	if logCfg.File.Enabled {
		if file, err := openLogFile(component, logCfg.File.Path); err == nil {
			l.file = file
		} else {
			logger.Warnf("Failed to open log file: %v", err)
		}
	}

	l.apply(resolveLevel(logCfg))
	return l
}

// resolveLevel picks the level from, in order, SetLevel, REPOVIEW_LOG_LEVEL
// and the config file. The default is info.
func resolveLevel(logCfg Config) logrus.Level {
	if levelOverride != nil {
		return *levelOverride
	}
	levelStr := "info"
	if env := os.Getenv("REPOVIEW_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func (l *componentLogger) apply(level logrus.Level) {
	logger := l.entry.Logger
	logger.SetLevel(level)

	var writers []io.Writer
	if l.file != nil {
		writers = append(writers, l.file)
	}
	if l.logToStderr(level) {
		writers = append(writers, GetGlobalOutput())
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
}

func (l *componentLogger) logToStderr(level logrus.Level) bool {
	switch l.cfg.Format.StructuredToStderr {
	case "always":
		return true
	case "never":
		return false
	default:
		isDebug := os.Getenv("REPOVIEW_DEBUG") == "1" || level >= logrus.DebugLevel
		return isDebug || !l.interactive
	}
}

func openLogFile(component, path string) (*os.File, error) {
	if path == "" {
		dir := paths.LogDir()
		if dir == "" {
			return nil, fmt.Errorf("no log directory available")
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%s.log", sanitize.ForFilename(component), time.Now().Format("2006-01-02")))
	}
	if expanded, err := pathutil.Expand(path); err == nil {
		path = expanded
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
