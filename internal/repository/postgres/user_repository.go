package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
)

const userColumns = `id, name, username, email, password_hash, is_man, age, created_at, updated_at`

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsMan        bool      `db:"is_man"`
	Age          int       `db:"age"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsMan:        r.IsMan,
		Age:          r.Age,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &UserRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Init applies the schema migrations, which cover both tables.
func (r *UserRepository) Init(ctx context.Context) error {
	return Migrate(ctx, r.db.DB)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := r.now()
	var row userRow
	err := r.db.GetContext(ctx, &row, `
INSERT INTO users (id, name, username, email, password_hash, is_man, age, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING `+userColumns,
		user.ID,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsMan,
		user.Age,
		now,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var (
		where []string
		args  []any
	)
	if filter.MinAge != nil {
		args = append(args, *filter.MinAge)
		where = append(where, fmt.Sprintf("age >= $%d", len(args)))
	}
	if filter.MaxAge != nil {
		args = append(args, *filter.MaxAge)
		where = append(where, fmt.Sprintf("age <= $%d", len(args)))
	}
	if filter.IsMan != nil {
		args = append(args, *filter.IsMan)
		where = append(where, fmt.Sprintf("is_man = $%d", len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, *row.toDomain())
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.IsMan != nil {
		add("is_man", *patch.IsMan)
	}
	if patch.Age != nil {
		add("age", *patch.Age)
	}
	add("updated_at", r.now())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), userColumns)

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if notFound(err) {
			return nil, repository.ErrNotFound
		}
		if dup := uniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return row.toDomain(), nil
}

// Delete removes the user; the foreign key cascades to their todos.
func (r *UserRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if notFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}
