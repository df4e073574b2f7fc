package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kilosha/todo-api/internal/apperror"
	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/validation"
)

const (
	msgUserNotFound = "user not found"
	msgFilterParam  = "filter is only possible by F, M or identifier"
)

// FilterResult holds either the users matching a gender filter or the user
// found by identifier.
type FilterResult struct {
	Users []domain.User
	User  *domain.User
}

// UserService describes user lifecycle operations. Returned users never
// carry the password hash.
type UserService interface {
	Register(ctx context.Context, body []byte) (*domain.User, error)
	Replace(ctx context.Context, id string, body []byte) (*domain.User, error)
	Patch(ctx context.Context, id string, body []byte) (*domain.User, error)
	List(ctx context.Context, query url.Values) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	FilterByParam(ctx context.Context, param string) (*FilterResult, error)
	Delete(ctx context.Context, id string) (*domain.User, error)
}

type userService struct {
	users      repository.UserRepository
	todos      repository.TodoRepository
	unique     *UniquenessChecker
	validator  *validation.Validator
	bcryptCost int
}

func NewUserService(users repository.UserRepository, todos repository.TodoRepository, v *validation.Validator, bcryptCost int) UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		users:      users,
		todos:      todos,
		unique:     NewUniquenessChecker(users),
		validator:  v,
		bcryptCost: bcryptCost,
	}
}

func (s *userService) Register(ctx context.Context, body []byte) (*domain.User, error) {
	var in RegisterInput
	violations := s.validator.DecodeJSON(body, &in)
	in.normalize()

	if err := s.checkPayload(ctx, violations, in.Username, in.Email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsMan:        *isMan(in.IsMan, in.Gender),
		Age:          *in.Age,
	})
	if err != nil {
		return nil, s.writeError(err, in.Username, in.Email)
	}
	return sanitizeUser(created), nil
}

func (s *userService) Replace(ctx context.Context, id string, body []byte) (*domain.User, error) {
	if violations := validation.ID("id", id); len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}

	var in RegisterInput
	violations := s.validator.DecodeJSON(body, &in)
	in.normalize()

	if err := s.checkPayload(ctx, violations, in.Username, in.Email, id); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.Update(ctx, id, repository.UserPatch{
		Name:         &in.Name,
		Username:     &in.Username,
		Email:        &in.Email,
		PasswordHash: &hash,
		IsMan:        isMan(in.IsMan, in.Gender),
		Age:          in.Age,
	})
	if err != nil {
		return nil, s.writeError(err, in.Username, in.Email)
	}
	return sanitizeUser(updated), nil
}

func (s *userService) Patch(ctx context.Context, id string, body []byte) (*domain.User, error) {
	if violations := validation.ID("id", id); len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}

	var in PatchInput
	violations := s.validator.DecodeJSON(body, &in)
	in.normalize()

	if err := s.checkPayload(ctx, violations, deref(in.Username), deref(in.Email), id); err != nil {
		return nil, err
	}

	patch := repository.UserPatch{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		IsMan:    isMan(in.IsMan, in.Gender),
		Age:      in.Age,
	}
	if in.Password != nil {
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	updated, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return nil, s.writeError(err, deref(in.Username), deref(in.Email))
	}
	return sanitizeUser(updated), nil
}

func (s *userService) List(ctx context.Context, query url.Values) ([]domain.User, error) {
	var q UserListQuery
	violations := s.validator.DecodeQuery(query, &q)
	if len(violations) == 0 && q.Min != nil && q.Max != nil && *q.Min > *q.Max {
		violations = append(violations, apperror.Violation{
			Value:    query.Get("min"),
			Msg:      "min must be less than or equal to max",
			Param:    "min",
			Location: validation.LocationQuery,
		})
	}
	if len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}

	users, err := s.users.List(ctx, repository.UserFilter{MinAge: q.Min, MaxAge: q.Max})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return sanitizeUsers(users), nil
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	if violations := validation.ID("id", id); len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, msgUserNotFound)
	}
	return sanitizeUser(user), nil
}

// FilterByParam lists users by gender for "M" or "F", otherwise looks the
// parameter up as an identifier.
func (s *userService) FilterByParam(ctx context.Context, param string) (*FilterResult, error) {
	switch param {
	case "M", "F":
		man := param == "M"
		users, err := s.users.List(ctx, repository.UserFilter{IsMan: &man})
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
		return &FilterResult{Users: sanitizeUsers(users)}, nil
	}

	if !validation.IsID(param) {
		return nil, apperror.NewValidation([]apperror.Violation{{
			Value:    param,
			Msg:      msgFilterParam,
			Param:    "param",
			Location: validation.LocationParams,
		}})
	}
	user, err := s.Get(ctx, param)
	if err != nil {
		return nil, err
	}
	return &FilterResult{User: user}, nil
}

// Delete removes the user together with their todos.
func (s *userService) Delete(ctx context.Context, id string) (*domain.User, error) {
	if violations := validation.ID("id", id); len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}
	removed, err := s.users.Delete(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, msgUserNotFound)
	}
	if _, err := s.todos.DeleteByUser(ctx, id); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("delete todos of user %s: %w", id, err))
	}
	return sanitizeUser(removed), nil
}

// checkPayload merges field violations with uniqueness collisions. Field
// violations win the error kind when both are present.
func (s *userService) checkPayload(ctx context.Context, violations []apperror.Violation, username, email, excludeID string) error {
	conflicts, err := s.unique.Check(ctx, username, email, excludeID)
	if err != nil {
		return apperror.NewInternal(err)
	}
	switch {
	case len(violations) > 0:
		return apperror.NewValidation(append(violations, conflicts...))
	case len(conflicts) > 0:
		return apperror.NewConflict(conflicts)
	}
	return nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("hash password: %w", err))
	}
	return string(hash), nil
}

// writeError translates repository failures of a user write.
func (s *userService) writeError(err error, username, email string) error {
	if dup, ok := repository.AsDuplicate(err); ok {
		value := email
		if dup.Field == repository.FieldUsername {
			value = username
		}
		return apperror.NewConflict([]apperror.Violation{takenViolation(dup.Field, value)})
	}
	return notFoundOr(err, msgUserNotFound)
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NewNotFound(message)
	}
	return apperror.NewInternal(err)
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
}

func (in *PatchInput) normalize() {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		in.Username = &username
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		Email:     user.Email,
		IsMan:     user.IsMan,
		Age:       user.Age,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func sanitizeUsers(users []domain.User) []domain.User {
	out := make([]domain.User, 0, len(users))
	for i := range users {
		out = append(out, *sanitizeUser(&users[i]))
	}
	return out
}
