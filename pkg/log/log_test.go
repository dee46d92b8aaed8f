package log

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	Info("adapter found", zap.String("port", "/dev/rfcomm0"))
	Debug("raw reply", zap.String("data", "410D41"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "adapter found", entries[0].Message)
	assert.Equal(t, "/dev/rfcomm0", entries[0].ContextMap()["port"])
	assert.Equal(t, zap.DebugLevel, entries[1].Level)
}

func TestInitLoggerFile(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	InitLogger(false, filepath.Join(t.TempDir(), "obdboard.log"))
	assert.False(t, Logger().Core().Enabled(zap.DebugLevel))

	InitLogger(true, "")
	assert.True(t, Logger().Core().Enabled(zap.DebugLevel))
}
