// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/docgrab/internal/config"
)

// consoleBuffer gives Initialize an in-memory console sink so tests can
// inspect output without touching stderr.
func consoleBuffer() (*bytes.Buffer, zapcore.WriteSyncer) {
	var buf bytes.Buffer
	return &buf, zapcore.AddSync(&buf)
}

func TestInitialize(t *testing.T) {

	t.Run("json output carries level, name and fields", func(t *testing.T) {
		ResetForTest()
		buf, sink := consoleBuffer()

		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "jsontest",
		}
		Initialize(cfg, sink)
		logger := GetLogger()
		logger.Warn("structured message", zap.String("key", "value"))

		var entry map[string]interface{}
		err := json.Unmarshal(buf.Bytes(), &entry)
		require.NoError(t, err, "log output should be valid JSON")

		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "jsontest", entry["logger"])
		assert.Equal(t, "structured message", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		buf, sink := consoleBuffer()

		cfg := config.LoggerConfig{Level: "shouting", Format: "json", ServiceName: "lvl"}
		Initialize(cfg, sink)
		logger := GetLogger()
		logger.Debug("suppressed")
		logger.Info("visible")

		out := buf.String()
		assert.NotContains(t, out, "suppressed")
		assert.Contains(t, out, "visible")
	})

	t.Run("file core writes json alongside the console", func(t *testing.T) {
		ResetForTest()
		_, sink := consoleBuffer()
		logPath := filepath.Join(t.TempDir(), "docgrab.log")

		cfg := config.LoggerConfig{
			Level:   "debug",
			Format:  "console",
			LogFile: logPath,
			MaxSize: 1,
		}
		Initialize(cfg, sink)
		GetLogger().Error("file bound message")
		Sync()

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "file bound message")
	})

	t.Run("second initialization is ignored", func(t *testing.T) {
		ResetForTest()
		buf, sink := consoleBuffer()

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, sink)
		first := GetLogger()

		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "second"}, sink)
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("who am I")
		assert.True(t, strings.Contains(buf.String(), "first"))
		assert.False(t, strings.Contains(buf.String(), "second"))
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("uninitialized returns a fallback", func(t *testing.T) {
		ResetForTest()
		logger := GetLogger()
		require.NotNil(t, logger)
	})

	t.Run("initialized returns the stored instance", func(t *testing.T) {
		ResetForTest()
		_, sink := consoleBuffer()
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "stored"}, sink)

		assert.Same(t, globalLogger.Load(), GetLogger())
	})
}
