package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/repository/memory"
)

type failingUsers struct {
	repository.UserRepository
}

func (failingUsers) List(context.Context, repository.UserFilter) ([]domain.User, error) {
	return nil, errors.New("store down")
}

func TestIsValueTaken(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	_, err := store.Users().Create(ctx, &domain.User{ID: "u1", Username: "max", Email: "max@x.com"})
	require.NoError(t, err)

	checker := NewUniquenessChecker(store.Users())

	taken, err := checker.IsValueTaken(ctx, repository.FieldEmail, "MAX@x.com", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = checker.IsValueTaken(ctx, repository.FieldEmail, "max@x.com", "u1")
	require.NoError(t, err)
	assert.False(t, taken, "own record is excluded")

	taken, err = checker.IsValueTaken(ctx, repository.FieldUsername, "Max", "")
	require.NoError(t, err)
	assert.False(t, taken, "usernames are case-sensitive")

	_, err = checker.IsValueTaken(ctx, "age", "1", "")
	assert.Error(t, err)
}

func TestCheckReportsBothFields(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	_, err := store.Users().Create(ctx, &domain.User{ID: "u1", Username: "max", Email: "max@x.com"})
	require.NoError(t, err)

	violations, err := NewUniquenessChecker(store.Users()).Check(ctx, "max", "max@x.com", "")
	require.NoError(t, err)
	require.Len(t, violations, 2)
	assert.Equal(t, "username", violations[0].Param)
	assert.Equal(t, "email", violations[1].Param)

	violations, err = NewUniquenessChecker(store.Users()).Check(ctx, "", "", "")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheckPropagatesStoreErrors(t *testing.T) {
	_, err := NewUniquenessChecker(failingUsers{}).Check(context.Background(), "max", "max@x.com", "")
	assert.EqualError(t, err, "list users: store down")
}
