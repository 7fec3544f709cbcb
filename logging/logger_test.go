package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Setenv("REPOVIEW_HOME", t.TempDir())

	logger := NewLogger("test-component")
	require.NotNil(t, logger)
	assert.Equal(t, "test-component", logger.Data["component"])
	assert.Same(t, logger, NewLogger("test-component"))
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "test message",
				Data:    logrus.Fields{"component": "rpc", "b": 2, "a": 1},
			},
			want: []string{"[INFO]", "[rpc]", "test message a=1 b=2"},
		},
		{
			name:   "simple format",
			config: FormatConfig{DisableTimestamp: true, DisableComponent: true},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "careful",
				Data:    logrus.Fields{"component": "rpc"},
			},
			want:    []string{"[WARN] careful"},
			notWant: []string{"[rpc]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(tt.entry)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, string(out), w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, string(out), nw)
			}
			assert.True(t, strings.HasSuffix(string(out), "\n"))
		})
	}
}

func TestResolveLevel(t *testing.T) {
	t.Cleanup(func() { levelOverride = nil })

	t.Setenv("REPOVIEW_LOG_LEVEL", "")
	assert.Equal(t, logrus.InfoLevel, resolveLevel(Config{}))
	assert.Equal(t, logrus.ErrorLevel, resolveLevel(Config{Level: "error"}))
	assert.Equal(t, logrus.InfoLevel, resolveLevel(Config{Level: "nonsense"}))

	t.Setenv("REPOVIEW_LOG_LEVEL", "debug")
	assert.Equal(t, logrus.DebugLevel, resolveLevel(Config{Level: "error"}))

	lvl := logrus.TraceLevel
	levelOverride = &lvl
	assert.Equal(t, logrus.TraceLevel, resolveLevel(Config{Level: "error"}))
}

func TestStderrSink(t *testing.T) {
	t.Cleanup(func() { levelOverride = nil })
	t.Setenv("REPOVIEW_LOG_LEVEL", "")
	t.Setenv("REPOVIEW_DEBUG", "")

	var buf bytes.Buffer
	prev := SetGlobalOutput(&buf)
	t.Cleanup(func() { SetGlobalOutput(prev) })

	// Interactive terminals only see structured logs at debug level.
	l := newComponentLogger("sink", Config{}, true)
	l.entry.Info("hidden")
	assert.Empty(t, buf.String())

	l.apply(logrus.DebugLevel)
	l.entry.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	never := newComponentLogger("never", Config{Format: FormatConfig{StructuredToStderr: "never"}}, false)
	never.entry.Error("dropped")
	assert.Empty(t, buf.String())

	buf.Reset()
	piped := newComponentLogger("piped", Config{}, false)
	piped.entry.Info("visible when piped")
	assert.Contains(t, buf.String(), "visible when piped")
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "out.log")
	l := newComponentLogger("file", Config{
		File:   FileSinkConfig{Enabled: true, Path: path},
		Format: FormatConfig{StructuredToStderr: "never"},
	}, true)

	l.entry.WithField("repo", "r1").Info("opened")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "opened repo=r1")
}

func TestJSONPreset(t *testing.T) {
	var buf bytes.Buffer
	prev := SetGlobalOutput(&buf)
	t.Cleanup(func() { SetGlobalOutput(prev) })

	l := newComponentLogger("json", Config{Format: FormatConfig{Preset: "json", StructuredToStderr: "always"}}, true)
	l.entry.Info("hello")
	assert.Contains(t, buf.String(), `"component":"json"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.Success("connected")
	p.Warn("slow")
	p.Error("failed", errors.New("boom"))
	p.Field("repo", "r1")
	p.Path("config", "/tmp/repoview.yml")

	out := buf.String()
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "failed: boom")
	assert.Contains(t, out, "repo")
	assert.Contains(t, out, "/tmp/repoview.yml")
}
