package lockserver_test

import (
	"testing"
	"time"

	"github.com/hgdeoro/tcpnetlock/internal/lockserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_TryAcquireAndRelease(t *testing.T) {
	e := &lockserver.Entry{}
	assert.False(t, e.IsLocked())

	require.True(t, e.TryAcquire())
	assert.True(t, e.IsLocked())
	assert.False(t, e.TryAcquire(), "a second TryAcquire must fail while held")

	e.Release()
	assert.False(t, e.IsLocked())
	assert.True(t, e.TryAcquire())
	e.Release()
}

func TestEntry_UpdateRecordsNameAndHolder(t *testing.T) {
	e := &lockserver.Entry{}
	require.True(t, e.TryAcquire())
	e.Update("alpha", "worker-1")

	assert.Equal(t, "alpha", e.Name())
	assert.Equal(t, "worker-1", e.HolderID())
	assert.Less(t, e.Age(), 100*time.Millisecond)
}

func TestEntry_UpdateReassignedNamePanics(t *testing.T) {
	e := &lockserver.Entry{}
	require.True(t, e.TryAcquire())
	e.Update("alpha", "worker-1")

	assert.Panics(t, func() {
		e.Update("beta", "worker-1")
	})
}

func TestEntry_AgeGrowsAfterUpdate(t *testing.T) {
	e := &lockserver.Entry{}
	require.True(t, e.TryAcquire())
	e.Update("alpha", "")
	time.Sleep(20 * time.Millisecond)
	assert.GreaterOrEqual(t, e.Age(), 20*time.Millisecond)
}
