package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeHealthChecker_NoChecksIsHealthy(t *testing.T) {
	checker := NewCompositeHealthChecker("1.0.0")

	status := checker.Check(context.Background())

	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "1.0.0", status.Version)
	assert.Empty(t, status.Checks)
}

func TestCompositeHealthChecker_AllChecksPass(t *testing.T) {
	checker := NewCompositeHealthChecker("1.0.0")
	checker.AddCheck("database", func(ctx context.Context) error { return nil })
	checker.AddCheck("cache", func(ctx context.Context) error { return nil })

	status := checker.Check(context.Background())

	assert.True(t, status.Healthy)
	assert.Equal(t, "all checks passed", status.Message)
	require.Len(t, status.Checks, 2)
	assert.Equal(t, "OK", status.Checks["database"].Message)
}

func TestCompositeHealthChecker_FailingCheckMarksUnhealthy(t *testing.T) {
	checker := NewCompositeHealthChecker("1.0.0")
	checker.AddCheck("database", func(ctx context.Context) error { return nil })
	checker.AddCheck("cache", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	status := checker.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, "checks failed: cache", status.Message)
	assert.True(t, status.Checks["database"].Healthy)
	require.Contains(t, status.Checks, "cache")
	assert.Equal(t, "connection refused", status.Checks["cache"].Message)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestDependencyChecks(t *testing.T) {
	assert.NoError(t, NewDatabaseCheck(stubPinger{})(context.Background()))

	down := errors.New("redis down")
	assert.ErrorIs(t, NewCacheCheck(stubPinger{err: down})(context.Background()), down)
}
