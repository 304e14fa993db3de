package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Console: &buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("plain message")
	logger.Debug("hidden debug")

	assert.Contains(t, buf.String(), "plain message")
	assert.NotContains(t, buf.String(), "hidden debug")
}

func TestNew_WritesJSONFile(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := New(Config{
		Level:    "debug",
		Dir:      tmpDir,
		Filename: "test.log",
		Console:  &bytes.Buffer{},
	})
	require.NoError(t, err)

	logger.Debug("debug %s", "formatted")
	logger.Warn("with fields", map[string]any{"host": "localhost", "port": 3306})
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(filepath.Join(tmpDir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "debug formatted")
	assert.Contains(t, string(content), `"host":"localhost"`)
	assert.Contains(t, string(content), `"port":3306`)
}

func TestTagMethods(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Console: &buf})
	require.NoError(t, err)

	logger.InfoTag("管理员", "Connected to MySQL at %s:%d", "localhost", 3306)
	logger.ErrorTag("代理", "upstream failed")

	out := buf.String()
	assert.Contains(t, out, "[管理员] Connected to MySQL at localhost:3306")
	assert.Contains(t, out, "[代理] upstream failed")
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[引导] 服务已启动", FormatLog("引导", "服务已启动"))
	assert.Equal(t, "[HTTP] already tagged", FormatLog("引导", "[HTTP] already tagged"))
	assert.Equal(t, "no tag", FormatLog(" ", " no tag "))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("DEBUG").String())
	assert.Equal(t, "WARN", ParseLevel("warn").String())
	assert.Equal(t, "ERROR", ParseLevel("error").String())
	assert.Equal(t, "INFO", ParseLevel("unknown").String())
}

func TestNilAndDiscardLoggers(t *testing.T) {
	var nilLogger *Logger
	nilLogger.InfoTag("引导", "ignored")

	Discard().Error("dropped")
}
