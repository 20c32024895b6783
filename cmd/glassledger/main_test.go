package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_UsesConfiguredMode(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		verbose   bool
		wantDebug bool
	}{
		{"debug_from_env", "debug", false, true},
		{"prod_from_env", "prod", false, false},
		{"verbose_wins", "prod", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEDGER_LOG_MODE", tt.mode)
			t.Setenv("LEDGER_STORE", "memory")

			log, err := newLogger(tt.verbose)
			require.NoError(t, err)
			defer log.Sync()

			core := log.SugaredLogger.Desugar().Core()
			assert.Equal(t, tt.wantDebug, core.Enabled(zapcore.DebugLevel))
		})
	}
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	t.Setenv("LEDGER_STORE", "redis")

	_, err := newLogger(false)
	assert.Error(t, err)
}
