package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shier/usercenter/internal/types"
)

func TestCacheSessionStore(t *testing.T) {
	store := NewCacheSessionStore(time.Minute)

	t.Run("SetGet", func(t *testing.T) {
		state := &types.SafeAccount{ID: 42, Handle: "alice123"}
		store.Set("sess-1", loginStateKey, state)

		v, ok := store.Get("sess-1", loginStateKey)
		assert.True(t, ok)
		assert.Same(t, state, v)
	})

	t.Run("MissingSession", func(t *testing.T) {
		_, ok := store.Get("unknown", loginStateKey)
		assert.False(t, ok)
	})

	t.Run("SessionsAreIsolated", func(t *testing.T) {
		store.Set("sess-a", loginStateKey, &types.SafeAccount{ID: 1})
		_, ok := store.Get("sess-b", loginStateKey)
		assert.False(t, ok)
	})

	t.Run("RemoveIsIdempotent", func(t *testing.T) {
		store.Set("sess-2", loginStateKey, &types.SafeAccount{ID: 7})
		store.Remove("sess-2", loginStateKey)
		_, ok := store.Get("sess-2", loginStateKey)
		assert.False(t, ok)

		// Removing again must not panic or resurrect anything.
		store.Remove("sess-2", loginStateKey)
		_, ok = store.Get("sess-2", loginStateKey)
		assert.False(t, ok)
	})

	t.Run("EntriesExpire", func(t *testing.T) {
		short := NewCacheSessionStore(10 * time.Millisecond)
		short.Set("sess-3", loginStateKey, &types.SafeAccount{ID: 9})
		time.Sleep(30 * time.Millisecond)
		_, ok := short.Get("sess-3", loginStateKey)
		assert.False(t, ok)
	})
}
