package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLoggerFromCore(core), logs
}

func TestLogger_EmitsAtAllLevels(t *testing.T) {
	log, logs := newObservedLogger()

	log.Debug("debug msg")
	log.Info("info msg")
	log.Warn("warn msg")
	log.Error("error msg")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "debug msg", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestLogger_FieldsAreAttached(t *testing.T) {
	log, logs := newObservedLogger()

	log.Info("assess",
		String("partner_id", "96a660ff-08e0-49c1-be6d-bb22a84e742e"),
		Int("risk_score", 72),
		Float64("velocity", 1.5),
		Bool("enhanced", true),
		Duration("elapsed", 250*time.Millisecond),
		Err(errors.New("boom")),
	)

	require.Len(t, logs.All(), 1)
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "96a660ff-08e0-49c1-be6d-bb22a84e742e", ctx["partner_id"])
	assert.Equal(t, int64(72), ctx["risk_score"])
	assert.Equal(t, 1.5, ctx["velocity"])
	assert.Equal(t, true, ctx["enhanced"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestLogger_WithCreatesChildWithBoundFields(t *testing.T) {
	log, logs := newObservedLogger()

	child := log.With(String("component", "ucp_builder"))
	child.Info("built")
	log.Info("parent untouched")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "ucp_builder", entries[0].ContextMap()["component"])
	_, ok := entries[1].ContextMap()["component"]
	assert.False(t, ok, "With must not mutate the parent logger")
}

func TestLogger_Named(t *testing.T) {
	log, logs := newObservedLogger()

	log.Named("http").Info("request")

	require.Len(t, logs.All(), 1)
	assert.Equal(t, "http", logs.All()[0].LoggerName)
}

func TestErrField_NilError(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNewLogger_DefaultsApply(t *testing.T) {
	log, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestDefaultLogger_SetAndGet(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	log, _ := newObservedLogger()
	SetDefault(log)
	assert.Equal(t, log, Default())

	// nil is ignored.
	SetDefault(nil)
	assert.Equal(t, log, Default())
}

func TestNopLogger_DoesNothing(t *testing.T) {
	log := NewNopLogger()
	assert.NotPanics(t, func() {
		log.Debug("x")
		log.Info("x", String("k", "v"))
		log.Warn("x")
		log.Error("x")
		log.With(Int("i", 1)).Named("n").Info("x")
	})
}
