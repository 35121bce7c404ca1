package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesJSONFile(t *testing.T) {
	t.Cleanup(func() { Lg = zap.NewNop() })

	file := filepath.Join(t.TempDir(), "logs", "app.log")
	err := Init(&LogConfig{Level: "debug", Filename: file, MaxSize: 1}, "production")
	require.NoError(t, err)

	Info("call started", zap.String("callSid", "CA123"))
	Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"callSid":"CA123"`)
	assert.Contains(t, string(data), `"msg":"call started"`)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	t.Cleanup(func() { Lg = zap.NewNop() })
	err := Init(&LogConfig{Level: "loud"}, "development")
	assert.Error(t, err)
}

func TestLogFilenameDaily(t *testing.T) {
	name := logFilename(&LogConfig{Filename: "./logs/app.log", Daily: true})
	assert.True(t, strings.HasPrefix(name, "./logs/app-"))
	assert.True(t, strings.HasSuffix(name, time.Now().Format("2006-01-02")+".log"))

	assert.Equal(t, "./logs/app.log", logFilename(&LogConfig{Filename: "./logs/app.log"}))
}
