package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

func TestZapLogger_Fields(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := NewObservedLogger(zap.New(obsCore))

	logger.Error("marking attendance",
		errors.New("boom"),
		identity.Principal{ID: 4, Role: identity.RoleTeacher},
		map[string]interface{}{"student_id": int64(7)},
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "marking attendance", entry.Message)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)

	ctx := entry.ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, int64(4), ctx["principal_id"])
	assert.Equal(t, "teacher", ctx["principal_role"])
	assert.Equal(t, int64(7), ctx["student_id"])
}

func TestNewZapLogger(t *testing.T) {
	conf := core.NewTestConfig()
	conf.LogLevel = "not-a-level"

	logger, err := NewZapLogger(conf)
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, logger.level.Level())

	logger.SetLevel(zapcore.WarnLevel)
	assert.False(t, logger.base.Core().Enabled(zapcore.InfoLevel))
}
