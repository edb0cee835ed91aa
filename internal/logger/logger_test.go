package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmail/internal/logger"
)

func TestNew_WritesToRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "mindmail.log")
	l, err := logger.New(logger.Config{Level: "info", File: file, MaxSize: 1})
	require.NoError(t, err)

	l.Info("letter delivered", zap.String("letter_id", "abc"))
	_ = l.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"letter delivered"`)
	assert.Contains(t, string(data), `"letter_id":"abc"`)
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "loud"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, logger.OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, logger.OrNop(l))
}
