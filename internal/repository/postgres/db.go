// Package postgres implements the repositories on PostgreSQL through the pgx
// database/sql driver, with sqlx for row mapping and goose for the schema.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/repository/postgres/migrations"
)

const uniqueViolationCode = "23505"

// Open connects to PostgreSQL using the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// uniqueViolation maps a unique_violation on the users table to a
// DuplicateError naming the column.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return &repository.DuplicateError{Field: repository.FieldEmail, Err: err}
	case "users_username_key":
		return &repository.DuplicateError{Field: repository.FieldUsername, Err: err}
	}
	return nil
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
