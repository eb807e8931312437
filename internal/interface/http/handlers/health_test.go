package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeHealthChecker_NoProbes(t *testing.T) {
	checker := NewCompositeHealthChecker("1.0.0")

	status := checker.Check(context.Background())

	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "1.0.0", status.Version)
}

func TestCompositeHealthChecker_AllPassing(t *testing.T) {
	checker := NewCompositeHealthChecker("1.0.0")
	checker.AddCheck("database", func(context.Context) error { return nil })
	checker.AddCheck("cache", func(context.Context) error { return nil })

	status := checker.Check(context.Background())

	assert.True(t, status.Healthy)
	require.Len(t, status.Checks, 2)
	assert.True(t, status.Checks["database"].Healthy)
	assert.True(t, status.Checks["cache"].Healthy)
}

func TestCompositeHealthChecker_OneFailingMarksUnhealthy(t *testing.T) {
	checker := NewCompositeHealthChecker("1.0.0")
	checker.AddCheck("database", func(context.Context) error { return nil })
	checker.AddCheck("scoring", func(context.Context) error { return errors.New("unreachable") })

	status := checker.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Contains(t, status.Message, "scoring")
	assert.Equal(t, "unreachable", status.Checks["scoring"].Message)
	assert.True(t, status.Checks["database"].Healthy)
}
