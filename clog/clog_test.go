package clog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/pulse/xerrors"
)

func newBufferLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts = append(opts, WithBuffer(buf))
	logger, err := New(&Config{Level: level, Format: "json", Output: "buffer"}, opts...)
	require.NoError(t, err)
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid config", config: &Config{Level: "info", Format: "console", Output: "stdout"}},
		{name: "nil config", config: nil},
		{name: "invalid level", config: &Config{Level: "invalid"}, wantErr: true},
		{name: "invalid format", config: &Config{Level: "info", Format: "xml"}, wantErr: true},
		{name: "buffer without option", config: &Config{Output: "buffer"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestLoggerLevelsAndSetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn")

	logger.Debug("debug msg")
	logger.Info("info msg")
	logger.Warn("warn msg")
	logger.Error("error msg")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "ERROR", lines[1]["level"])

	// 派生 Logger 共享级别
	child := logger.WithNamespace("child")
	require.NoError(t, logger.SetLevel(DebugLevel))
	buf.Reset()
	child.Debug("now visible")
	lines = decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "now visible", lines[0]["msg"])
}

func TestLoggerWithNamespace(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithNamespace("pulse"))

	logger.WithNamespace("scheduler").Info("tick")
	logger.WithNamespace("event").Info("publish")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "pulse.scheduler", lines[0][NamespaceKey])
	assert.Equal(t, "pulse.event", lines[1][NamespaceKey])
}

func TestLoggerWith(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	base := logger.With(String("service", "svc"))
	a := base.With(Int("n", 1))
	b := base.With(Int("n", 2))
	a.Info("a")
	b.Info("b")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "svc", lines[0]["service"])
	assert.EqualValues(t, 1, lines[0]["n"])
	assert.EqualValues(t, 2, lines[1]["n"])
}

func TestErrorField(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	logger.Error("plain", Error(errors.New("boom")))
	logger.Error("coded", Error(xerrors.WithCode(errors.New("down"), xerrors.CodeTickFailed)))
	logger.Error("nil", Error(nil))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "boom", lines[0]["err_msg"])

	group, ok := lines[1]["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, xerrors.CodeTickFailed, group["code"])

	_, hasErr := lines[2]["err_msg"]
	assert.False(t, hasErr)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": DebugLevel, "INFO": InfoLevel, "warn": WarnLevel, "warning": WarnLevel, "Error": ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("fatal")
	assert.Error(t, err)
	assert.Equal(t, "info", InfoLevel.String())
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing")
	assert.NotNil(t, l.With(String("k", "v")).WithNamespace("x"))
	assert.NoError(t, l.SetLevel(DebugLevel))
}
