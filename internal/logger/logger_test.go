package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsAreForwarded(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Warn("role assignment failed", map[string]any{
		"identity_key": "42",
		"status":       502,
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "role assignment failed", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "42", ctx["identity_key"])
	assert.EqualValues(t, 502, ctx["status"])
}

func TestNilFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Info("shutdown signal received", nil)

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}
