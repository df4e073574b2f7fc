package domain

import "time"

// Todo is a task owned by a single user.
type Todo struct {
	ID          string
	Title       string
	IsCompleted bool
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
