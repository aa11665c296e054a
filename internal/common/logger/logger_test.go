package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestZapWrapper_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "lifecycle"})

	log.WithError(errors.New("boom")).Warn("notification dropped", map[string]interface{}{
		"jobId": "job-1",
		"cause": errors.New("sink down"),
	})

	entries := logs.All()
	assert.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "lifecycle", ctx["component"])
	assert.Equal(t, "job-1", ctx["jobId"])
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "sink down", ctx["cause"])
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger().Named("x").With(map[string]interface{}{"a": 1})
	log.Info("ignored", nil)
}
