package checkout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	t.Run("PutGetDelete", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		sess := NewSession(uuid.New())

		_, ok := store.Get(1)
		assert.False(t, ok)

		store.Put(1, sess)
		got, ok := store.Get(1)
		require.True(t, ok)
		assert.Equal(t, sess.TempIdentityID, got.TempIdentityID)

		store.Delete(1)
		_, ok = store.Get(1)
		assert.False(t, ok)
	})

	t.Run("ExpiredSessionGone", func(t *testing.T) {
		store := NewMemoryStore(10 * time.Millisecond)
		store.Put(1, NewSession(uuid.New()))

		time.Sleep(25 * time.Millisecond)

		_, ok := store.Get(1)
		assert.False(t, ok)
	})

	t.Run("SessionsAreIsolatedPerUser", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		a := NewSession(uuid.New())
		b := NewSession(uuid.New())

		store.Put(1, a)
		store.Put(2, b)
		store.Delete(1)

		_, ok := store.Get(1)
		assert.False(t, ok)
		got, ok := store.Get(2)
		require.True(t, ok)
		assert.Equal(t, b.TempIdentityID, got.TempIdentityID)
	})
}
