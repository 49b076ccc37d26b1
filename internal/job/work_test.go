package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinWorkTakesItsBudget(t *testing.T) {
	start := time.Now()
	require.NoError(t, SpinWork(2000)(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Millisecond)
}

func TestSpinWorkStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, SpinWork(int64(time.Hour/time.Microsecond))(ctx), context.Canceled)
}
