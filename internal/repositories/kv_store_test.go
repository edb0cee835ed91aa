package repositories_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmail/internal/errs"
	"mindmail/internal/repositories"
)

// runKVStoreSuite checks the behaviour every backend must share.
func runKVStoreSuite(t *testing.T, newStore func(t *testing.T) repositories.KVStore) {
	ctx := context.Background()

	t.Run("MissingKey", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "com.mindmail.nothing")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "com.mindmail.letters", []byte(`[1]`)))
		got, err := s.Get(ctx, "com.mindmail.letters")
		require.NoError(t, err)
		assert.Equal(t, `[1]`, string(got))

		require.NoError(t, s.Set(ctx, "com.mindmail.letters", []byte(`[1,2]`)))
		got, err = s.Get(ctx, "com.mindmail.letters")
		require.NoError(t, err)
		assert.Equal(t, `[1,2]`, string(got))
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "com.mindmail.user", []byte(`{}`)))
		require.NoError(t, s.Delete(ctx, "com.mindmail.user"))
		_, err := s.Get(ctx, "com.mindmail.user")
		assert.ErrorIs(t, err, errs.ErrNotFound)

		assert.NoError(t, s.Delete(ctx, "com.mindmail.user"), "deleting a missing key is not an error")
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "com.mindmail.a", []byte(`"a"`)))
		require.NoError(t, s.Set(ctx, "com.mindmail.b", []byte(`"b"`)))
		a, err := s.Get(ctx, "com.mindmail.a")
		require.NoError(t, err)
		assert.Equal(t, `"a"`, string(a))
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(ctx))
	})
}

func TestMemoryKVStore(t *testing.T) {
	runKVStoreSuite(t, func(t *testing.T) repositories.KVStore {
		return repositories.NewMemoryKVStore()
	})
}

func TestMemoryKVStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := repositories.NewMemoryKVStore()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileKVStore(t *testing.T) {
	runKVStoreSuite(t, func(t *testing.T) repositories.KVStore {
		s, err := repositories.NewFileKVStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestFileKVStore_RejectsPathKeys(t *testing.T) {
	s, err := repositories.NewFileKVStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Set(context.Background(), "../escape", []byte("x")))
	assert.Error(t, s.Set(context.Background(), "a/b", []byte("x")))
}

func TestGORMKVStore(t *testing.T) {
	runKVStoreSuite(t, func(t *testing.T) repositories.KVStore {
		db, err := repositories.OpenGORM("sqlite", filepath.Join(t.TempDir(), "mindmail.db"))
		require.NoError(t, err)
		s := repositories.NewGORMKVStore(db)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenGORM_UnknownDriver(t *testing.T) {
	_, err := repositories.OpenGORM("mysql", "")
	assert.Error(t, err)
}

func TestRedisKVStore(t *testing.T) {
	runKVStoreSuite(t, func(t *testing.T) repositories.KVStore {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		s := repositories.NewRedisKVStore(client)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := repositories.DialRedis(context.Background(), repositories.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewKeys(t *testing.T) {
	keys := repositories.NewKeys("")
	assert.Equal(t, "com.mindmail.user", keys.User)
	assert.Equal(t, "com.mindmail.journal_entries", keys.JournalEntries)
	assert.Equal(t, "com.mindmail.letters", keys.Letters)
	assert.Equal(t, "com.mindmail.onboarding_completed", keys.OnboardingCompleted)
	assert.Len(t, keys.All(), 4)

	assert.Equal(t, "test.letters", repositories.NewKeys("test.").Letters)
}
