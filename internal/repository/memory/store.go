// Package memory keeps users and todos in process memory. Data is lost on
// restart; it backs tests and the "memory" storage backend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
)

// Store is the shared state behind the user and todo repositories.
type Store struct {
	mu     sync.RWMutex
	tables Tables
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Users() repository.UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Todos() repository.TodoRepository {
	return &TodoRepository{store: s}
}

type UserRepository struct {
	store *Store
}

func (r *UserRepository) Init(context.Context) error { return nil }

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	created, err := r.store.tables.CreateUser(*user, r.store.now())
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, err := r.store.tables.UserByID(id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, err := r.store.tables.UserByEmail(email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.tables.ListUsers(filter), nil
}

func (r *UserRepository) Update(_ context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	updated, err := r.store.tables.UpdateUser(id, patch, r.store.now())
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	removed, err := r.store.tables.DeleteUser(id)
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

type TodoRepository struct {
	store *Store
}

func (r *TodoRepository) Init(context.Context) error { return nil }

func (r *TodoRepository) Create(_ context.Context, todo *domain.Todo) (*domain.Todo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	created := r.store.tables.CreateTodo(*todo, r.store.now())
	return &created, nil
}

func (r *TodoRepository) GetByID(_ context.Context, id string) (*domain.Todo, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	todo, err := r.store.tables.TodoByID(id)
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *TodoRepository) List(_ context.Context, filter repository.TodoFilter) ([]domain.Todo, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.tables.ListTodos(filter), nil
}

func (r *TodoRepository) Update(_ context.Context, id string, patch repository.TodoPatch) (*domain.Todo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	updated, err := r.store.tables.UpdateTodo(id, patch, r.store.now())
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *TodoRepository) Delete(_ context.Context, id string) (*domain.Todo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	removed, err := r.store.tables.DeleteTodo(id)
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (r *TodoRepository) DeleteByUser(_ context.Context, userID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.tables.DeleteTodosByUser(userID), nil
}
