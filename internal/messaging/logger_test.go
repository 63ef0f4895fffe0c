package messaging_test

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/serroba/tinylink/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := messaging.NewZapLogger(zap.New(core))

	t.Run("writes error with fields", func(t *testing.T) {
		logger.Error("publish failed", errors.New("boom"), watermill.LogFields{"topic": "visit.recorded"})

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "visit.recorded", entries[0].ContextMap()["topic"])
		assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	})

	t.Run("trace maps to debug", func(t *testing.T) {
		logger.Trace("polling", nil)

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	})

	t.Run("with carries fields to later entries", func(t *testing.T) {
		logger.With(watermill.LogFields{"consumer_group": "enrichment"}).Info("subscribed", nil)

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, "enrichment", entries[0].ContextMap()["consumer_group"])
	})
}
