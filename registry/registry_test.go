package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) Add(d time.Duration) {
	c.now = c.now.Add(d)
}

type vessel struct {
	Name string
}

func TestStore_UpsertCreatesAndUpdates(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	store := NewStore[vessel](clock)

	store.Upsert("211234560", func(v *vessel, created bool) {
		assert.True(t, created)
		v.Name = "TESTSHIP"
	})
	store.Upsert("211234560", func(v *vessel, created bool) {
		assert.False(t, created)
		assert.Equal(t, "TESTSHIP", v.Name)
	})

	entry, ok := store.Get("211234560")
	require.True(t, ok)
	assert.Equal(t, 2, entry.Messages)
	assert.Equal(t, clock.now, entry.LastSeen)
	assert.Equal(t, 1, store.Len())
}

func TestStore_ActiveFiltersByAge(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	store := NewStore[vessel](clock)

	store.Upsert("old", nil)
	clock.Add(10 * time.Minute)
	store.Upsert("fresh", nil)

	active := store.Active(600 * time.Second)
	require.Len(t, active, 1)
	assert.Equal(t, 1, active[0].Messages)

	// the stale entry remains in the full registry
	assert.Equal(t, 2, store.Len())
	_, ok := store.Get("old")
	assert.True(t, ok)
}

func TestStore_ActiveDoesNotMutate(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	store := NewStore[vessel](clock)

	store.Upsert("a", nil)
	before, _ := store.Get("a")

	clock.Add(time.Minute)
	store.Active(600 * time.Second)

	after, _ := store.Get("a")
	assert.Equal(t, before, after)
}
