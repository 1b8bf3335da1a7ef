package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			log, err := New(level, "json")
			require.NoError(t, err)

			want, _ := zapcore.ParseLevel(level)
			assert.True(t, log.Core().Enabled(want))
			if want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(want-1))
			}
		})
	}
}

func TestNewConsole(t *testing.T) {
	log, err := New("debug", "console")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)

	assert.NotNil(t, Must("loud", "json"))
}
