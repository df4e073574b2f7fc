package memory

import (
	"strings"
	"time"

	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
)

// Tables holds users and todos in insertion order. It does no locking; the
// caller serializes access.
type Tables struct {
	Users []domain.User
	Todos []domain.Todo
}

func (t *Tables) userIndex(id string) int {
	for i := range t.Users {
		if t.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Tables) todoIndex(id string) int {
	for i := range t.Todos {
		if t.Todos[i].ID == id {
			return i
		}
	}
	return -1
}

// checkUnique enforces email and username uniqueness, ignoring excludeID.
func (t *Tables) checkUnique(email, username, excludeID string) error {
	for i := range t.Users {
		if t.Users[i].ID == excludeID {
			continue
		}
		if email != "" && strings.EqualFold(t.Users[i].Email, email) {
			return &repository.DuplicateError{Field: repository.FieldEmail}
		}
		if username != "" && t.Users[i].Username == username {
			return &repository.DuplicateError{Field: repository.FieldUsername}
		}
	}
	return nil
}

func (t *Tables) CreateUser(user domain.User, now time.Time) (domain.User, error) {
	if err := t.checkUnique(user.Email, user.Username, ""); err != nil {
		return domain.User{}, err
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	t.Users = append(t.Users, user)
	return user, nil
}

func (t *Tables) UserByID(id string) (domain.User, error) {
	idx := t.userIndex(id)
	if idx < 0 {
		return domain.User{}, repository.ErrNotFound
	}
	return t.Users[idx], nil
}

func (t *Tables) UserByEmail(email string) (domain.User, error) {
	for i := range t.Users {
		if strings.EqualFold(t.Users[i].Email, email) {
			return t.Users[i], nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (t *Tables) ListUsers(filter repository.UserFilter) []domain.User {
	users := make([]domain.User, 0, len(t.Users))
	for i := range t.Users {
		if filter.Matches(t.Users[i]) {
			users = append(users, t.Users[i])
		}
	}
	return users
}

func (t *Tables) UpdateUser(id string, patch repository.UserPatch, now time.Time) (domain.User, error) {
	idx := t.userIndex(id)
	if idx < 0 {
		return domain.User{}, repository.ErrNotFound
	}
	var email, username string
	if patch.Email != nil {
		email = *patch.Email
	}
	if patch.Username != nil {
		username = *patch.Username
	}
	if err := t.checkUnique(email, username, id); err != nil {
		return domain.User{}, err
	}
	patch.Apply(&t.Users[idx])
	t.Users[idx].UpdatedAt = now
	return t.Users[idx], nil
}

func (t *Tables) DeleteUser(id string) (domain.User, error) {
	idx := t.userIndex(id)
	if idx < 0 {
		return domain.User{}, repository.ErrNotFound
	}
	removed := t.Users[idx]
	t.Users = append(t.Users[:idx], t.Users[idx+1:]...)
	return removed, nil
}

func (t *Tables) CreateTodo(todo domain.Todo, now time.Time) domain.Todo {
	todo.CreatedAt = now
	todo.UpdatedAt = now
	t.Todos = append(t.Todos, todo)
	return todo
}

func (t *Tables) TodoByID(id string) (domain.Todo, error) {
	idx := t.todoIndex(id)
	if idx < 0 {
		return domain.Todo{}, repository.ErrNotFound
	}
	return t.Todos[idx], nil
}

func (t *Tables) ListTodos(filter repository.TodoFilter) []domain.Todo {
	todos := make([]domain.Todo, 0)
	for i := range t.Todos {
		if filter.Matches(t.Todos[i]) {
			todos = append(todos, t.Todos[i])
		}
	}
	return todos
}

func (t *Tables) UpdateTodo(id string, patch repository.TodoPatch, now time.Time) (domain.Todo, error) {
	idx := t.todoIndex(id)
	if idx < 0 {
		return domain.Todo{}, repository.ErrNotFound
	}
	patch.Apply(&t.Todos[idx])
	t.Todos[idx].UpdatedAt = now
	return t.Todos[idx], nil
}

func (t *Tables) DeleteTodo(id string) (domain.Todo, error) {
	idx := t.todoIndex(id)
	if idx < 0 {
		return domain.Todo{}, repository.ErrNotFound
	}
	removed := t.Todos[idx]
	t.Todos = append(t.Todos[:idx], t.Todos[idx+1:]...)
	return removed, nil
}

func (t *Tables) DeleteTodosByUser(userID string) int {
	kept := t.Todos[:0]
	removed := 0
	for _, todo := range t.Todos {
		if todo.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, todo)
	}
	t.Todos = kept
	return removed
}
