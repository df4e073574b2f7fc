package repository

import (
	"context"

	"github.com/kilosha/todo-api/internal/domain"
)

// TodoFilter narrows List results. An empty UserID matches every owner.
type TodoFilter struct {
	UserID      string
	IsCompleted *bool
}

func (f TodoFilter) Matches(todo domain.Todo) bool {
	if f.UserID != "" && todo.UserID != f.UserID {
		return false
	}
	if f.IsCompleted != nil && todo.IsCompleted != *f.IsCompleted {
		return false
	}
	return true
}

// TodoPatch carries the fields to change. Nil fields are left untouched.
type TodoPatch struct {
	Title       *string
	IsCompleted *bool
}

func (p TodoPatch) Apply(todo *domain.Todo) {
	if p.Title != nil {
		todo.Title = *p.Title
	}
	if p.IsCompleted != nil {
		todo.IsCompleted = *p.IsCompleted
	}
}

// TodoRepository exposes persistence operations for Todo records.
type TodoRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, todo *domain.Todo) (*domain.Todo, error)
	GetByID(ctx context.Context, id string) (*domain.Todo, error)
	List(ctx context.Context, filter TodoFilter) ([]domain.Todo, error)
	Update(ctx context.Context, id string, patch TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, id string) (*domain.Todo, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
