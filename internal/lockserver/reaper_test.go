package lockserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgdeoro/tcpnetlock/internal/lockserver"
)

func newTestMetrics() *lockserver.Metrics {
	return lockserver.NewMetrics(func() float64 { return 0 })
}

func TestReaper_EvictsIdleUnlockedEntry(t *testing.T) {
	registry := lockserver.NewRegistry()
	e := registry.GetOrCreate("alpha")
	require.True(t, e.TryAcquire())
	e.Update("alpha", "")
	e.Release()

	reaper := lockserver.NewReaper(registry, newTestMetrics(), zerolog.Nop(), 10*time.Millisecond, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go reaper.Run(ctx)

	assert.Eventually(t, func() bool {
		_, ok := registry.Lookup("alpha")
		return !ok
	}, 500*time.Millisecond, 10*time.Millisecond, "idle entry should eventually be reaped")
}

func TestReaper_NeverEvictsHeldEntry(t *testing.T) {
	registry := lockserver.NewRegistry()
	e := registry.GetOrCreate("alpha")
	require.True(t, e.TryAcquire())
	e.Update("alpha", "")
	// deliberately not released

	reaper := lockserver.NewReaper(registry, newTestMetrics(), zerolog.Nop(), 5*time.Millisecond, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	reaper.Run(ctx)

	_, ok := registry.Lookup("alpha")
	assert.True(t, ok, "a held entry must never be reaped")
}

func TestReaper_NeverEvictsYoungEntry(t *testing.T) {
	registry := lockserver.NewRegistry()
	e := registry.GetOrCreate("alpha")
	require.True(t, e.TryAcquire())
	e.Update("alpha", "")
	e.Release()

	reaper := lockserver.NewReaper(registry, newTestMetrics(), zerolog.Nop(), 5*time.Millisecond, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	reaper.Run(ctx)

	_, ok := registry.Lookup("alpha")
	assert.True(t, ok, "an entry younger than minAge must not be reaped")
}
