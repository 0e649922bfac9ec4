package logging

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func newTestLogger(t *testing.T, level zapcore.Level) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buf, level)
	return NewLoggerFromCore(core), buf
}

func decodeLines(t *testing.T, buf *zaptest.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range buf.Lines() {
		m := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger_JSONFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo, Format: "json", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelDebug, Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_EmptyOutputPathsRejected(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNewDefaultLogger_NotNil(t *testing.T) {
	assert.NotNil(t, NewDefaultLogger())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warn "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestLogger_FieldsAreEncoded(t *testing.T) {
	l, buf := newTestLogger(t, zapcore.DebugLevel)

	l.Warn("duplicate keyword",
		String("domain", "ahrefs.com"),
		Int("index", 3),
		Int64("volume", 1200),
		Float64("score", 0.5),
		Bool("capped", true),
		Duration("elapsed", 2*time.Second),
		Strings("competitors", []string{"a.com", "b.com"}),
		Err(errors.New("boom")),
	)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "duplicate keyword", entry["msg"])
	assert.Equal(t, "ahrefs.com", entry["domain"])
	assert.EqualValues(t, 3, entry["index"])
	assert.EqualValues(t, 1200, entry["volume"])
	assert.Equal(t, true, entry["capped"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_NamedAndWith(t *testing.T) {
	l, buf := newTestLogger(t, zapcore.DebugLevel)

	child := l.Named("fetcher").With(String("analysis_id", "a1"))
	child.Info("page fetched")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "fetcher", lines[0]["logger"])
	assert.Equal(t, "a1", lines[0]["analysis_id"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newTestLogger(t, zapcore.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.Error("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "shown"))
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestSetLevel(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo})
	require.NoError(t, err)
	assert.True(t, SetLevel(l, LevelDebug))
	assert.True(t, SetLevel(l.Named("child"), LevelWarn))
	assert.False(t, SetLevel(NewNopLogger(), LevelDebug))
}

func TestNopLogger_DoesNotPanic(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
		l.With(String("k", "v")).Named("n").Info("x")
	})
}

func TestDefault_SetAndGet(t *testing.T) {
	orig := Default()
	t.Cleanup(func() { SetDefault(orig) })

	l, _ := newTestLogger(t, zapcore.InfoLevel)
	SetDefault(l)
	assert.Equal(t, l, Default())

	SetDefault(nil)
	assert.Equal(t, l, Default())
}

//Personal.AI order the ending
