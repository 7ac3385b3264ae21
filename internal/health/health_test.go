package health

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("store", func(ctx context.Context) Status { return StatusOK })
	c.Register("x_api", func(ctx context.Context) Status { return StatusOK })

	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_OneDown(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("store", func(ctx context.Context) Status { return StatusOK })
	c.Register("xai", func(ctx context.Context) Status { return StatusDown })

	assert.False(t, c.IsReady(context.Background()))
}

func TestChecker_Degraded_StillReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("sessions", func(ctx context.Context) Status { return StatusDegraded })

	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_ResultsCarryLatency(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("slow", func(ctx context.Context) Status {
		time.Sleep(10 * time.Millisecond)
		return StatusOK
	})

	results := c.RunAll(context.Background())
	require.Contains(t, results, "slow")
	assert.GreaterOrEqual(t, results["slow"].Latency, 10*time.Millisecond)
	assert.False(t, results["slow"].CheckedAt.IsZero())
}

func TestChecker_SnapshotReturnsCachedResults(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	calls := 0
	c.Register("store", func(ctx context.Context) Status {
		calls++
		return StatusOK
	})

	assert.Empty(t, c.Snapshot())

	c.RunAll(context.Background())
	snap := c.Snapshot()
	require.Contains(t, snap, "store")
	assert.Equal(t, StatusOK, snap["store"].Status)
	assert.Equal(t, 1, calls, "snapshot does not re-run checks")
}
