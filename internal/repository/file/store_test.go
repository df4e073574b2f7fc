package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "data", "db.json"))
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestInitCreatesEmptyDocument(t *testing.T) {
	store := newStore(t)

	raw, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":[],"todos":[]}`, string(raw))
}

func TestWritesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Users().Create(ctx, &domain.User{ID: "u1", Username: "m1", Email: "m1@x.com", PasswordHash: "h", Age: 25})
	require.NoError(t, err)
	_, err = store.Todos().Create(ctx, &domain.Todo{ID: "t1", Title: "milk", UserID: "u1"})
	require.NoError(t, err)

	reopened := NewStore(store.path)
	require.NoError(t, reopened.Init(ctx))

	user, err := reopened.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h", user.PasswordHash)
	assert.Equal(t, 25, user.Age)

	todos, err := reopened.Todos().List(ctx, repository.TodoFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.False(t, todos[0].IsCompleted)
}

func TestDuplicateEmailIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	users := store.Users()

	_, err := users.Create(ctx, &domain.User{ID: "u1", Username: "m1", Email: "m1@x.com"})
	require.NoError(t, err)

	_, err = users.Create(ctx, &domain.User{ID: "u2", Username: "m2", Email: "m1@x.com"})
	dup, ok := repository.AsDuplicate(err)
	require.True(t, ok)
	assert.Equal(t, repository.FieldEmail, dup.Field)

	list, err := users.List(ctx, repository.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	todos := store.Todos()

	_, err := todos.Create(ctx, &domain.Todo{ID: "t1", Title: "milk", UserID: "u1"})
	require.NoError(t, err)

	done := true
	updated, err := todos.Update(ctx, "t1", repository.TodoPatch{IsCompleted: &done})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)

	removed, err := todos.Delete(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", removed.ID)

	_, err = todos.GetByID(ctx, "t1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCorruptFileIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := NewStore(path).Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode data file")
}
