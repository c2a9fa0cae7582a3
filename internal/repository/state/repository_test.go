package state

import (
	"context"
	"path/filepath"
	"testing"

	"noor-storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositories_RoundTrip(t *testing.T) {
	backends := map[string]func(t *testing.T) Repository{
		"memory": func(*testing.T) Repository { return NewMemory() },
		"file": func(t *testing.T) Repository {
			return NewFile(filepath.Join(t.TempDir(), "nested"), nil)
		},
	}
	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := build(t)

			require.NoError(t, repo.Ping(ctx))

			_, err := repo.Load(ctx, "auth-storage")
			assert.ErrorIs(t, err, domain.ErrNotFound)

			require.NoError(t, repo.Save(ctx, "auth-storage", []byte(`{"accessToken":"a"}`)))
			require.NoError(t, repo.Save(ctx, "auth-storage", []byte(`{"accessToken":"b"}`)))

			got, err := repo.Load(ctx, "auth-storage")
			require.NoError(t, err)
			assert.JSONEq(t, `{"accessToken":"b"}`, string(got))

			require.NoError(t, repo.Delete(ctx, "auth-storage"))
			require.NoError(t, repo.Delete(ctx, "auth-storage"))
			_, err = repo.Load(ctx, "auth-storage")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestFileRepo_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, NewFile(dir, nil).Save(ctx, "auth-storage", []byte(`{"x":1}`)))

	got, err := NewFile(dir, nil).Load(ctx, "auth-storage")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(got))
}

func TestFileRepo_RejectsPathKeys(t *testing.T) {
	repo := NewFile(t.TempDir(), nil)
	err := repo.Save(context.Background(), "../escape", []byte(`{}`))
	assert.Error(t, err)
}

func TestMemoryRepo_CopiesValues(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	value := []byte(`{"a":1}`)
	require.NoError(t, repo.Save(ctx, "k", value))
	value[2] = 'b'

	got, err := repo.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}
