package main

import (
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kilosha/todo-api/internal/app"
	"github.com/kilosha/todo-api/internal/config"
)

func TestSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var cfg config.Config
	cfg.Storage.Backend = config.BackendMemory
	cfg.Auth.JWTSecret = "secret"
	cfg.Auth.TokenTTLMinutes = 60
	cfg.Auth.BcryptCost = bcrypt.MinCost

	repos, err := app.OpenRepositories(ctx, cfg, logger)
	require.NoError(t, err)
	services := app.NewServices(cfg, repos)

	require.NoError(t, seed(ctx, services, "Qwerty1!", logger))
	require.NoError(t, seed(ctx, services, "Qwerty1!", logger))

	users, err := services.Users.List(ctx, url.Values{})
	require.NoError(t, err)
	require.Len(t, users, 3)

	women, err := services.Users.FilterByParam(ctx, "F")
	require.NoError(t, err)
	assert.Len(t, women.Users, 2)

	var marryID string
	for _, u := range users {
		if u.Username == "marry22" {
			marryID = u.ID
		}
	}
	require.NotEmpty(t, marryID)

	done := url.Values{"isCompleted": {"true"}}
	completed, err := services.Todos.List(ctx, marryID, done)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "Buy sausages", completed[0].Title)

	_, err = services.Auth.Login(ctx, []byte(`{"email":"php@mail.com","password":"Qwerty1!"}`))
	require.NoError(t, err)
}
