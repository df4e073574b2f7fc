package file

import (
	"context"
	"time"

	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/repository/memory"
)

type UserRepository struct {
	store *Store
}

func (r *UserRepository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	var created domain.User
	err := r.store.write(func(t *memory.Tables, now time.Time) error {
		var err error
		created, err = t.CreateUser(*user, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.store.read(func(t *memory.Tables) error {
		var err error
		user, err = t.UserByID(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.store.read(func(t *memory.Tables) error {
		var err error
		user, err = t.UserByEmail(email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var users []domain.User
	err := r.store.read(func(t *memory.Tables) error {
		users = t.ListUsers(filter)
		return nil
	})
	return users, err
}

func (r *UserRepository) Update(_ context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	var updated domain.User
	err := r.store.write(func(t *memory.Tables, now time.Time) error {
		var err error
		updated, err = t.UpdateUser(id, patch, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) (*domain.User, error) {
	var removed domain.User
	err := r.store.write(func(t *memory.Tables, _ time.Time) error {
		var err error
		removed, err = t.DeleteUser(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

type TodoRepository struct {
	store *Store
}

func (r *TodoRepository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

func (r *TodoRepository) Create(_ context.Context, todo *domain.Todo) (*domain.Todo, error) {
	var created domain.Todo
	err := r.store.write(func(t *memory.Tables, now time.Time) error {
		created = t.CreateTodo(*todo, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *TodoRepository) GetByID(_ context.Context, id string) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.store.read(func(t *memory.Tables) error {
		var err error
		todo, err = t.TodoByID(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *TodoRepository) List(_ context.Context, filter repository.TodoFilter) ([]domain.Todo, error) {
	var todos []domain.Todo
	err := r.store.read(func(t *memory.Tables) error {
		todos = t.ListTodos(filter)
		return nil
	})
	return todos, err
}

func (r *TodoRepository) Update(_ context.Context, id string, patch repository.TodoPatch) (*domain.Todo, error) {
	var updated domain.Todo
	err := r.store.write(func(t *memory.Tables, now time.Time) error {
		var err error
		updated, err = t.UpdateTodo(id, patch, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *TodoRepository) Delete(_ context.Context, id string) (*domain.Todo, error) {
	var removed domain.Todo
	err := r.store.write(func(t *memory.Tables, _ time.Time) error {
		var err error
		removed, err = t.DeleteTodo(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (r *TodoRepository) DeleteByUser(_ context.Context, userID string) (int, error) {
	var n int
	err := r.store.write(func(t *memory.Tables, _ time.Time) error {
		n = t.DeleteTodosByUser(userID)
		return nil
	})
	return n, err
}
