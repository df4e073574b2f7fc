package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/kilosha/todo-api/internal/apperror"
	"github.com/kilosha/todo-api/internal/auth"
	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/validation"
)

const (
	msgUnknownEmail      = "user with this email does not exist"
	msgIncorrectPassword = "incorrect password"
)

// AuthService exchanges credentials for a bearer token.
type AuthService interface {
	Login(ctx context.Context, body []byte) (string, error)
}

type authService struct {
	users     repository.UserRepository
	tokens    *auth.TokenIssuer
	validator *validation.Validator
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenIssuer, v *validation.Validator) AuthService {
	return &authService{users: users, tokens: tokens, validator: v}
}

func (s *authService) Login(ctx context.Context, body []byte) (string, error) {
	var in LoginInput
	if violations := s.validator.DecodeJSON(body, &in); len(violations) > 0 {
		return "", apperror.NewValidation(violations)
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperror.NewBadRequest(msgUnknownEmail)
		}
		return "", apperror.NewInternal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return "", apperror.NewBadRequest(msgIncorrectPassword)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	return token, nil
}
