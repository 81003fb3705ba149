// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/obsidiansec/bountyhound/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer for log capture.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func initTestLogger(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	Initialize(cfg, zapcore.Lock(buf))
	return buf
}

func TestInitialize_JSONFormat(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{
		Level: "debug", Format: "json", ServiceName: "bountyhound-test",
	})

	GetLogger().Info("scan dispatched", zap.String("target", "https://t"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scan dispatched", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "bountyhound-test", entry["logger"])
	assert.Equal(t, "https://t", entry["target"])
}

func TestInitialize_LevelFiltering(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{
		Level: "warn", Format: "json", ServiceName: "bountyhound-test",
	})

	GetLogger().Info("should be filtered")
	GetLogger().Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}

func TestInitialize_InvalidLevelDefaultsToInfo(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{
		Level: "chatty", Format: "json", ServiceName: "bountyhound-test",
	})

	GetLogger().Debug("debug suppressed at info")
	GetLogger().Info("info visible")

	out := buf.String()
	assert.NotContains(t, out, "debug suppressed at info")
	assert.Contains(t, out, "info visible")
}

func TestInitialize_OnlyOnce(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{
		Level: "info", Format: "json", ServiceName: "first",
	})

	// A second call must be a no-op.
	second := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, zapcore.Lock(second))

	GetLogger().Info("routed to the first writer")
	assert.Contains(t, buf.String(), "routed to the first writer")
	assert.Empty(t, second.String())
}

func TestGetLogger_FallbackBeforeInitialization(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
}
