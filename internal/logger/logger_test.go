package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewDevelopment(t *testing.T) {
	log := New("development")
	assert.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewProduction(t *testing.T) {
	log := New("production")
	assert.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
