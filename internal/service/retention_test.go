package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRetentionService_Run(t *testing.T) {
	ds := newMockDeliberationStore()
	ds.deleted = 3

	s := NewRetentionService(ds, 30*24*time.Hour, zap.NewNop())
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	assert.Equal(t, int64(3), s.run(context.Background()))
	assert.Equal(t, now.Add(-30*24*time.Hour), ds.deleteCutoff)
}

func TestRetentionService_DisabledWhenZero(t *testing.T) {
	ds := newMockDeliberationStore()
	ds.deleted = 3

	s := NewRetentionService(ds, 0, zap.NewNop())
	assert.Zero(t, s.run(context.Background()))
	assert.True(t, ds.deleteCutoff.IsZero())
}

func TestRetentionService_StartStop(t *testing.T) {
	ds := newMockDeliberationStore()
	s := NewRetentionService(ds, time.Hour, zap.NewNop())
	s.SetInterval(5 * time.Millisecond)

	s.Start()
	assert.Eventually(t, func() bool {
		ds.mu.Lock()
		defer ds.mu.Unlock()
		return !ds.deleteCutoff.IsZero()
	}, time.Second, 5*time.Millisecond)
	s.Stop()
}
