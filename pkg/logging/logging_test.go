package logging_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turbowrap/turbowrap/pkg/logging"
)

func TestNew_DefaultsToJSONInfo(t *testing.T) {
	l := logging.New("", "")
	assert.NotNil(t, l)
	assert.True(t, l.Enabled(nil, slog.LevelInfo))
	assert.False(t, l.Enabled(nil, slog.LevelDebug))
}

func TestNew_TextFormatAndDebugLevel(t *testing.T) {
	l := logging.New("text", "debug")
	assert.True(t, l.Enabled(nil, slog.LevelDebug))
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := logging.New("json", "verbose-ish-nonsense")
	assert.True(t, l.Enabled(nil, slog.LevelInfo))
	assert.False(t, l.Enabled(nil, slog.LevelDebug))
}
