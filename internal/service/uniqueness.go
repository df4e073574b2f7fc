package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kilosha/todo-api/internal/apperror"
	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/validation"
)

// UniquenessChecker reports whether a unique user field is already in use.
// Its answer is a hint for the caller; the repository constraint decides.
type UniquenessChecker struct {
	users repository.UserRepository
}

func NewUniquenessChecker(users repository.UserRepository) *UniquenessChecker {
	return &UniquenessChecker{users: users}
}

// IsValueTaken scans all users for field == value, skipping excludeID.
// Emails compare case-insensitively.
func (c *UniquenessChecker) IsValueTaken(ctx context.Context, field, value, excludeID string) (bool, error) {
	users, err := c.users.List(ctx, repository.UserFilter{})
	if err != nil {
		return false, fmt.Errorf("list users: %w", err)
	}
	for _, user := range users {
		if user.ID == excludeID {
			continue
		}
		switch field {
		case repository.FieldEmail:
			if strings.EqualFold(user.Email, value) {
				return true, nil
			}
		case repository.FieldUsername:
			if user.Username == value {
				return true, nil
			}
		default:
			return false, fmt.Errorf("unknown unique field %q", field)
		}
	}
	return false, nil
}

// Check runs the username and email lookups concurrently and returns one
// violation per value already taken. Empty values are not checked.
func (c *UniquenessChecker) Check(ctx context.Context, username, email, excludeID string) ([]apperror.Violation, error) {
	var usernameTaken, emailTaken bool

	g, gctx := errgroup.WithContext(ctx)
	if username != "" {
		g.Go(func() error {
			var err error
			usernameTaken, err = c.IsValueTaken(gctx, repository.FieldUsername, username, excludeID)
			return err
		})
	}
	if email != "" {
		g.Go(func() error {
			var err error
			emailTaken, err = c.IsValueTaken(gctx, repository.FieldEmail, email, excludeID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var violations []apperror.Violation
	if usernameTaken {
		violations = append(violations, takenViolation(repository.FieldUsername, username))
	}
	if emailTaken {
		violations = append(violations, takenViolation(repository.FieldEmail, email))
	}
	return violations, nil
}

func takenViolation(field, value string) apperror.Violation {
	return apperror.Violation{
		Value:    value,
		Msg:      field + " is already in use",
		Param:    field,
		Location: validation.LocationBody,
	}
}
