package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, DEBUG, ParseLevel(" Debug "))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger("world", &buf)

	l.Debug("скрыто %d", 1)
	l.Info("видно %d", 2)
	assert.NotContains(t, buf.String(), "скрыто")
	assert.Contains(t, buf.String(), "[INFO] [world] видно 2")

	l.SetLevels(TRACE, TRACE)
	l.Trace("трассировка")
	assert.Contains(t, buf.String(), "[TRACE] [world] трассировка")
}

func TestLogChunkMeshed(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger("world", &buf)
	l.SetLevels(DEBUG, DEBUG)

	LogChunkMeshed(l, "Chunk (1, 0, 2)", 12, 3*time.Millisecond)
	assert.Contains(t, buf.String(), "[DEBUG] [world] Chunk (1, 0, 2) обработан: твёрдых вокселей 12 за 3ms")
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("ничего") })
	assert.NotPanics(t, func() { Info("глобальный логгер не инициализирован") })
}

func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("logs")

	l, err := NewLogger("export")
	require.NoError(t, err)
	l.Debug("в файл")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "export_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [export] в файл")
}

func TestLoggerManagerReusesLoggers(t *testing.T) {
	SetLogDir("")
	defer SetLogDir("logs")

	lm := NewLoggerManager()
	a, err := lm.GetLogger("api")
	require.NoError(t, err)
	b, err := lm.GetLogger("api")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = lm.GetLogger("world")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "world"}, lm.ListComponents())

	assert.NoError(t, lm.SetLogLevel("api", DEBUG, DEBUG))
	assert.Error(t, lm.SetLogLevel("missing", DEBUG, DEBUG))

	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}
