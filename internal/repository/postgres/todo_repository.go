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

const todoColumns = `id, title, is_completed, user_id, created_at, updated_at`

type todoRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	IsCompleted bool      `db:"is_completed"`
	UserID      string    `db:"user_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r todoRow) toDomain() *domain.Todo {
	return &domain.Todo{
		ID:          r.ID,
		Title:       r.Title,
		IsCompleted: r.IsCompleted,
		UserID:      r.UserID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type TodoRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTodoRepository(db *sqlx.DB) repository.TodoRepository {
	return &TodoRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *TodoRepository) Init(ctx context.Context) error {
	return Migrate(ctx, r.db.DB)
}

func (r *TodoRepository) Create(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	var row todoRow
	err := r.db.GetContext(ctx, &row, `
INSERT INTO todos (id, title, is_completed, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING `+todoColumns,
		todo.ID,
		todo.Title,
		todo.IsCompleted,
		todo.UserID,
		r.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	return row.toDomain(), nil
}

func (r *TodoRepository) GetByID(ctx context.Context, id string) (*domain.Todo, error) {
	return r.getOne(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id)
}

func (r *TodoRepository) List(ctx context.Context, filter repository.TodoFilter) ([]domain.Todo, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.IsCompleted != nil {
		args = append(args, *filter.IsCompleted)
		where = append(where, fmt.Sprintf("is_completed = $%d", len(args)))
	}

	query := `SELECT ` + todoColumns + ` FROM todos`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	var rows []todoRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	todos := make([]domain.Todo, 0, len(rows))
	for _, row := range rows {
		todos = append(todos, *row.toDomain())
	}
	return todos, nil
}

func (r *TodoRepository) Update(ctx context.Context, id string, patch repository.TodoPatch) (*domain.Todo, error) {
	var (
		set  []string
		args []any
	)
	if patch.Title != nil {
		args = append(args, *patch.Title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.IsCompleted != nil {
		args = append(args, *patch.IsCompleted)
		set = append(set, fmt.Sprintf("is_completed = $%d", len(args)))
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, r.now())
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE todos SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), todoColumns)
	return r.getOne(ctx, query, args...)
}

func (r *TodoRepository) Delete(ctx context.Context, id string) (*domain.Todo, error) {
	return r.getOne(ctx, `DELETE FROM todos WHERE id = $1 RETURNING `+todoColumns, id)
}

func (r *TodoRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete todos: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete todos rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *TodoRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Todo, error) {
	var row todoRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if notFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("todo query: %w", err)
	}
	return row.toDomain(), nil
}
