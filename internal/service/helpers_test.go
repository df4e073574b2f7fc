package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kilosha/todo-api/internal/apperror"
	"github.com/kilosha/todo-api/internal/auth"
	"github.com/kilosha/todo-api/internal/repository/memory"
	"github.com/kilosha/todo-api/internal/validation"
)

type fixture struct {
	store  *memory.Store
	users  UserService
	todos  TodoService
	auth   AuthService
	tokens *auth.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	v := validation.New()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return &fixture{
		store:  store,
		users:  NewUserService(store.Users(), store.Todos(), v, bcrypt.MinCost),
		todos:  NewTodoService(store.Todos(), store.Users(), v),
		auth:   NewAuthService(store.Users(), tokens, v),
		tokens: tokens,
	}
}

// register creates a user named after username and returns its id.
func (f *fixture) register(t *testing.T, username string) string {
	t.Helper()
	user, err := f.users.Register(context.Background(), []byte(
		`{"name":"Name","username":"`+username+`","email":"`+username+`@x.com","password":"Aa1!aaaa","age":25,"isMan":true}`))
	require.NoError(t, err)
	return user.ID
}

func requireKind(t *testing.T, err error, kind apperror.Kind) *apperror.Error {
	t.Helper()
	appErr, ok := apperror.From(err)
	require.True(t, ok, "expected *apperror.Error, got %v", err)
	require.Equal(t, kind, appErr.Kind, "message: %s", appErr.Message)
	return appErr
}

func violationParams(err *apperror.Error) []string {
	params := make([]string, 0, len(err.Violations))
	for _, v := range err.Violations {
		params = append(params, v.Param)
	}
	return params
}
