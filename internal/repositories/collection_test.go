package repositories_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmail/internal/errs"
	"mindmail/internal/repositories"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type failingKV struct {
	repositories.KVStore
	err error
}

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Set(context.Context, string, []byte) error  { return f.err }

func TestLoadCollection_MissingKeyIsEmpty(t *testing.T) {
	kv := repositories.NewMemoryKVStore()
	items, err := repositories.LoadCollection[item](context.Background(), kv, "com.mindmail.items")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSaveAndLoadCollection(t *testing.T) {
	ctx := context.Background()
	kv := repositories.NewMemoryKVStore()
	want := []item{{ID: "1", Name: "one"}, {ID: "2", Name: "two"}}

	require.NoError(t, repositories.SaveCollection(ctx, kv, "com.mindmail.items", want))
	got, err := repositories.LoadCollection[item](ctx, kv, "com.mindmail.items")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveCollection_NilIsStoredAsEmptyList(t *testing.T) {
	ctx := context.Background()
	kv := repositories.NewMemoryKVStore()
	require.NoError(t, repositories.SaveCollection[item](ctx, kv, "k", nil))

	raw, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestLoadCollection_CorruptDataFailsLoudly(t *testing.T) {
	ctx := context.Background()
	kv := repositories.NewMemoryKVStore()
	require.NoError(t, kv.Set(ctx, "com.mindmail.items", []byte(`{not json`)))

	_, err := repositories.LoadCollection[item](ctx, kv, "com.mindmail.items")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDataCorrupted)

	var se *errs.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "com.mindmail.items", se.Key)
	assert.Equal(t, "load", se.Op)
}

type tagged struct {
	ID string `json:"id" validate:"required"`
}

func TestLoadCollection_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing required field", `[{"id":"1"},{}]`},
		{"unknown field", `[{"id":"1","extra":true}]`},
		{"trailing value", `[{"id":"1"}] [{"id":"2"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := repositories.NewMemoryKVStore()
			require.NoError(t, kv.Set(ctx, "com.mindmail.items", []byte(tt.raw)))

			_, err := repositories.LoadCollection[tagged](ctx, kv, "com.mindmail.items")
			assert.ErrorIs(t, err, errs.ErrDataCorrupted)
		})
	}

	ctx := context.Background()
	kv := repositories.NewMemoryKVStore()
	require.NoError(t, kv.Set(ctx, "com.mindmail.items", []byte("[{\"id\":\"1\"}]\n")))
	got, err := repositories.LoadCollection[tagged](ctx, kv, "com.mindmail.items")
	require.NoError(t, err)
	assert.Equal(t, []tagged{{ID: "1"}}, got)
}

func TestLoadValue(t *testing.T) {
	ctx := context.Background()
	kv := repositories.NewMemoryKVStore()

	v, err := repositories.LoadValue[bool](ctx, kv, "flag")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, repositories.SaveValue(ctx, kv, "flag", true))
	v, err = repositories.LoadValue[bool](ctx, kv, "flag")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, *v)
}

func TestBackendFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk gone")
	kv := failingKV{err: boom}

	_, err := repositories.LoadCollection[item](ctx, kv, "k")
	assert.ErrorIs(t, err, errs.ErrLoadFailed)
	assert.ErrorIs(t, err, boom)

	err = repositories.SaveCollection(ctx, kv, "k", []item{{ID: "1"}})
	assert.ErrorIs(t, err, errs.ErrSaveFailed)
	assert.ErrorIs(t, err, boom)
}
