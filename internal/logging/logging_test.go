package logging

import (
	"testing"

	"marker-ide/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debugOn   bool
		infoOn    bool
		warningOn bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(config.Log{Level: tt.level})
			require.NoError(t, err)
			core := logger.Core()
			assert.Equal(t, tt.debugOn, core.Enabled(zapcore.DebugLevel))
			assert.Equal(t, tt.infoOn, core.Enabled(zapcore.InfoLevel))
			assert.Equal(t, tt.warningOn, core.Enabled(zapcore.WarnLevel))
		})
	}
}

func TestNew_Development(t *testing.T) {
	logger, err := New(config.Log{Level: "info", Development: true})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.Log{Level: "loud"})
	assert.Error(t, err)
}
