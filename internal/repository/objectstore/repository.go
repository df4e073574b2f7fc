package objectstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
)

const fetchConcurrency = 8

type userDocument struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	IsMan        bool      `json:"is_man"`
	Age          int       `json:"age"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Pending      bool      `json:"pending,omitempty"`
}

func newUserDocument(u domain.User) userDocument {
	return userDocument{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsMan:        u.IsMan,
		Age:          u.Age,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDocument) toDomain() domain.User {
	return domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		IsMan:        d.IsMan,
		Age:          d.Age,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type todoDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UserRepository struct {
	store *Store
}

func (r *UserRepository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	s := r.store
	created := *user
	now := s.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	docKey := s.userKey(created.ID)
	doc := newUserDocument(created)
	doc.Pending = true
	if err := s.putJSON(ctx, docKey, doc, createOnly); err != nil {
		return nil, err
	}

	markers := []struct{ key, field string }{
		{s.emailMarkerKey(created.Email), repository.FieldEmail},
		{s.usernameMarkerKey(created.Username), repository.FieldUsername},
	}
	var claimed []string
	rollback := func() {
		for _, key := range claimed {
			_ = s.release(ctx, key, created.ID)
		}
		_ = s.delete(ctx, docKey)
	}
	for _, m := range markers {
		if err := s.claim(ctx, m.key, created.ID, m.field); err != nil {
			rollback()
			return nil, err
		}
		claimed = append(claimed, m.key)
	}
	for _, m := range markers {
		owned, err := s.owns(ctx, m.key, created.ID)
		if err != nil {
			rollback()
			return nil, err
		}
		if !owned {
			rollback()
			return nil, &repository.DuplicateError{Field: m.field, Err: errPreconditionFailed}
		}
	}

	doc.Pending = false
	if err := s.putJSON(ctx, docKey, doc, writeCondition{}); err != nil {
		rollback()
		return nil, err
	}
	return &created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var doc userDocument
	if err := r.store.getJSON(ctx, r.store.userKey(id), &doc); err != nil {
		return nil, err
	}
	if doc.Pending {
		return nil, repository.ErrNotFound
	}
	user := doc.toDomain()
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	owner, err := r.store.get(ctx, r.store.emailMarkerKey(email))
	if err != nil {
		return nil, err
	}
	user, err := r.GetByID(ctx, string(owner))
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, email) {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	keys, err := r.store.listDocuments(ctx, "users")
	if err != nil {
		return nil, err
	}

	docs := make([]*userDocument, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			var doc userDocument
			if err := r.store.getJSON(gctx, key, &doc); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil
				}
				return err
			}
			if !doc.Pending {
				docs[i] = &doc
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		user := doc.toDomain()
		if filter.Matches(user) {
			users = append(users, user)
		}
	}
	sortByCreation(users,
		func(u domain.User) time.Time { return u.CreatedAt },
		func(u domain.User) string { return u.ID })
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	s := r.store
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	updated := *current
	patch.Apply(&updated)
	updated.UpdatedAt = s.now()

	var claimed, released []string
	rollback := func() {
		for _, key := range claimed {
			_ = s.release(ctx, key, id)
		}
	}
	if !strings.EqualFold(updated.Email, current.Email) {
		key := s.emailMarkerKey(updated.Email)
		if err := s.claim(ctx, key, id, repository.FieldEmail); err != nil {
			return nil, err
		}
		claimed = append(claimed, key)
		released = append(released, s.emailMarkerKey(current.Email))
	}
	if updated.Username != current.Username {
		key := s.usernameMarkerKey(updated.Username)
		if err := s.claim(ctx, key, id, repository.FieldUsername); err != nil {
			rollback()
			return nil, err
		}
		claimed = append(claimed, key)
		released = append(released, s.usernameMarkerKey(current.Username))
	}

	if err := s.putJSON(ctx, s.userKey(id), newUserDocument(updated), writeCondition{}); err != nil {
		rollback()
		return nil, err
	}
	for _, key := range released {
		if err := s.release(ctx, key, id); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	s := r.store
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.delete(ctx, s.userKey(id)); err != nil {
		return nil, err
	}
	for _, key := range []string{s.emailMarkerKey(user.Email), s.usernameMarkerKey(user.Username)} {
		if err := s.release(ctx, key, id); err != nil {
			return nil, err
		}
	}
	return user, nil
}

type TodoRepository struct {
	store *Store
}

func (r *TodoRepository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

func (r *TodoRepository) Create(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	created := *todo
	now := r.store.now()
	created.CreatedAt = now
	created.UpdatedAt = now
	if err := r.store.putJSON(ctx, r.store.todoKey(created.ID), todoDocument(created), createOnly); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *TodoRepository) GetByID(ctx context.Context, id string) (*domain.Todo, error) {
	var doc todoDocument
	if err := r.store.getJSON(ctx, r.store.todoKey(id), &doc); err != nil {
		return nil, err
	}
	todo := domain.Todo(doc)
	return &todo, nil
}

func (r *TodoRepository) List(ctx context.Context, filter repository.TodoFilter) ([]domain.Todo, error) {
	keys, err := r.store.listDocuments(ctx, "todos")
	if err != nil {
		return nil, err
	}

	docs := make([]*todoDocument, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			var doc todoDocument
			if err := r.store.getJSON(gctx, key, &doc); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil
				}
				return err
			}
			docs[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	todos := make([]domain.Todo, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		todo := domain.Todo(*doc)
		if filter.Matches(todo) {
			todos = append(todos, todo)
		}
	}
	sortByCreation(todos,
		func(t domain.Todo) time.Time { return t.CreatedAt },
		func(t domain.Todo) string { return t.ID })
	return todos, nil
}

func (r *TodoRepository) Update(ctx context.Context, id string, patch repository.TodoPatch) (*domain.Todo, error) {
	todo, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Title == nil && patch.IsCompleted == nil {
		return todo, nil
	}
	patch.Apply(todo)
	todo.UpdatedAt = r.store.now()
	if err := r.store.putJSON(ctx, r.store.todoKey(id), todoDocument(*todo), writeCondition{}); err != nil {
		return nil, err
	}
	return todo, nil
}

func (r *TodoRepository) Delete(ctx context.Context, id string) (*domain.Todo, error) {
	todo, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.delete(ctx, r.store.todoKey(id)); err != nil {
		return nil, err
	}
	return todo, nil
}

func (r *TodoRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	todos, err := r.List(ctx, repository.TodoFilter{UserID: userID})
	if err != nil {
		return 0, err
	}
	for _, todo := range todos {
		if err := r.store.delete(ctx, r.store.todoKey(todo.ID)); err != nil {
			return 0, err
		}
	}
	return len(todos), nil
}
