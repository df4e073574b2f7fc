package domain

import "time"

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// User represents a registered account.
type User struct {
	ID           string
	Name         string
	Username     string
	Email        string
	PasswordHash string
	IsMan        bool
	Age          int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Gender derives the textual gender from the IsMan flag.
func (u User) Gender() string {
	if u.IsMan {
		return GenderMale
	}
	return GenderFemale
}
