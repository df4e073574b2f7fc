package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/kilosha/todo-api/internal/apperror"
	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/validation"
)

const (
	msgNoSuchTask    = "no such task for this user"
	msgOwnerNotFound = "account no longer exists"
)

// TodoService manages the todos of one owner at a time. Mutations never
// touch a todo owned by someone else.
type TodoService interface {
	List(ctx context.Context, userID string, query url.Values) ([]domain.Todo, error)
	Create(ctx context.Context, userID string, body []byte) (*domain.Todo, error)
	Rename(ctx context.Context, userID, id string, body []byte) (*domain.Todo, error)
	ToggleCompleted(ctx context.Context, userID, id string) (*domain.Todo, error)
	Delete(ctx context.Context, userID, id string) (*domain.Todo, error)
}

type todoService struct {
	todos     repository.TodoRepository
	users     repository.UserRepository
	validator *validation.Validator
}

func NewTodoService(todos repository.TodoRepository, users repository.UserRepository, v *validation.Validator) TodoService {
	return &todoService{todos: todos, users: users, validator: v}
}

func (s *todoService) List(ctx context.Context, userID string, query url.Values) ([]domain.Todo, error) {
	var q TodoListQuery
	if violations := s.validator.DecodeQuery(query, &q); len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}
	todos, err := s.todos.List(ctx, repository.TodoFilter{UserID: userID, IsCompleted: q.IsCompleted})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return todos, nil
}

// Create rejects callers whose account was deleted after their token was
// issued.
func (s *todoService) Create(ctx context.Context, userID string, body []byte) (*domain.Todo, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewUnauthorized(msgOwnerNotFound)
		}
		return nil, apperror.NewInternal(err)
	}
	title, err := s.decodeTitle(body)
	if err != nil {
		return nil, err
	}
	todo, err := s.todos.Create(ctx, &domain.Todo{
		ID:     uuid.NewString(),
		Title:  title,
		UserID: userID,
	})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return todo, nil
}

func (s *todoService) Rename(ctx context.Context, userID, id string, body []byte) (*domain.Todo, error) {
	if violations := validation.ID("id", id); len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}
	title, err := s.decodeTitle(body)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.update(ctx, id, repository.TodoPatch{Title: &title})
}

func (s *todoService) ToggleCompleted(ctx context.Context, userID, id string) (*domain.Todo, error) {
	if violations := validation.ID("id", id); len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}
	todo, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	completed := !todo.IsCompleted
	return s.update(ctx, id, repository.TodoPatch{IsCompleted: &completed})
}

func (s *todoService) Delete(ctx context.Context, userID, id string) (*domain.Todo, error) {
	if violations := validation.ID("id", id); len(violations) > 0 {
		return nil, apperror.NewValidation(violations)
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	removed, err := s.todos.Delete(ctx, id)
	if err != nil {
		return nil, missingTask(err)
	}
	return removed, nil
}

// owned fetches the todo and hides it unless userID owns it.
func (s *todoService) owned(ctx context.Context, userID, id string) (*domain.Todo, error) {
	todo, err := s.todos.GetByID(ctx, id)
	if err != nil {
		return nil, missingTask(err)
	}
	if todo.UserID != userID {
		return nil, apperror.NewBadRequest(msgNoSuchTask)
	}
	return todo, nil
}

func (s *todoService) update(ctx context.Context, id string, patch repository.TodoPatch) (*domain.Todo, error) {
	todo, err := s.todos.Update(ctx, id, patch)
	if err != nil {
		return nil, missingTask(err)
	}
	return todo, nil
}

// missingTask reports an absent todo the same way as a foreign one.
func missingTask(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NewBadRequest(msgNoSuchTask)
	}
	return apperror.NewInternal(err)
}

func (s *todoService) decodeTitle(body []byte) (string, error) {
	var in TodoInput
	if violations := s.validator.DecodeJSON(body, &in); len(violations) > 0 {
		return "", apperror.NewValidation(violations)
	}
	return strings.TrimSpace(in.Title), nil
}
