package repository

import (
	"context"

	"github.com/kilosha/todo-api/internal/domain"
)

// UserFilter narrows List results. Nil fields do not filter.
type UserFilter struct {
	MinAge *int
	MaxAge *int
	IsMan  *bool
}

// Matches reports whether user passes every set criterion.
func (f UserFilter) Matches(user domain.User) bool {
	if f.MinAge != nil && user.Age < *f.MinAge {
		return false
	}
	if f.MaxAge != nil && user.Age > *f.MaxAge {
		return false
	}
	if f.IsMan != nil && user.IsMan != *f.IsMan {
		return false
	}
	return true
}

// UserPatch carries the fields to change. Nil fields are left untouched.
type UserPatch struct {
	Name         *string
	Username     *string
	Email        *string
	PasswordHash *string
	IsMan        *bool
	Age          *int
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Username == nil && p.Email == nil &&
		p.PasswordHash == nil && p.IsMan == nil && p.Age == nil
}

// Apply copies the set fields onto user.
func (p UserPatch) Apply(user *domain.User) {
	if p.Name != nil {
		user.Name = *p.Name
	}
	if p.Username != nil {
		user.Username = *p.Username
	}
	if p.Email != nil {
		user.Email = *p.Email
	}
	if p.PasswordHash != nil {
		user.PasswordHash = *p.PasswordHash
	}
	if p.IsMan != nil {
		user.IsMan = *p.IsMan
	}
	if p.Age != nil {
		user.Age = *p.Age
	}
}

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id string) (*domain.User, error)
}
