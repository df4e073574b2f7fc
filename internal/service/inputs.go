package service

import "github.com/kilosha/todo-api/internal/domain"

// RegisterInput is the body of a registration or a full user update.
// Exactly one of isMan and gender is accepted.
type RegisterInput struct {
	Name     string  `json:"name" validate:"required,nonblank" msg:"name must be a non-empty string"`
	Username string  `json:"username" validate:"required,nonblank" msg:"username must be a non-empty string"`
	Email    string  `json:"email" validate:"required,email" msg:"enter a valid email (example@example.com)"`
	Password string  `json:"password" validate:"required,strongpassword" msg:"password must be at least 8 characters long and contain an uppercase letter, a lowercase letter, a number and a symbol"`
	IsMan    *bool   `json:"isMan" validate:"required_without=Gender,excluded_with=Gender" msg:"isMan must be true or false"`
	Gender   *string `json:"gender" validate:"omitnil,oneof=male female M F" msg:"gender must be one of male, female, M, F"`
	Age      *int    `json:"age" validate:"required,min=10,max=100" msg:"age must be an integer from 10 to 100"`
}

// PatchInput is the body of a partial user update. Absent fields are kept.
type PatchInput struct {
	Name     *string `json:"name" validate:"omitnil,nonblank" msg:"name must be a non-empty string"`
	Username *string `json:"username" validate:"omitnil,nonblank" msg:"username must be a non-empty string"`
	Email    *string `json:"email" validate:"omitnil,email" msg:"enter a valid email (example@example.com)"`
	Password *string `json:"password" validate:"omitnil,strongpassword" msg:"password must be at least 8 characters long and contain an uppercase letter, a lowercase letter, a number and a symbol"`
	IsMan    *bool   `json:"isMan" validate:"omitnil,excluded_with=Gender" msg:"isMan must be true or false"`
	Gender   *string `json:"gender" validate:"omitnil,oneof=male female M F" msg:"gender must be one of male, female, M, F"`
	Age      *int    `json:"age" validate:"omitnil,min=10,max=100" msg:"age must be an integer from 10 to 100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email" msg:"enter a valid email (example@example.com)"`
	Password string `json:"password" validate:"required,nonblank" msg:"password must be a string"`
}

type TodoInput struct {
	Title string `json:"title" validate:"required,nonblank" msg:"title must be a non-empty string"`
}

type UserListQuery struct {
	Min *int `json:"min" validate:"omitnil,min=10,max=100" msg:"min age must be an integer from 10 to 100"`
	Max *int `json:"max" validate:"omitnil,min=10,max=100" msg:"max age must be an integer from 10 to 100"`
}

type TodoListQuery struct {
	IsCompleted *bool `json:"isCompleted" msg:"isCompleted must be true or false"`
}

// isMan resolves the gender of a payload carrying either isMan or gender.
func isMan(flag *bool, gender *string) *bool {
	if flag != nil {
		return flag
	}
	if gender == nil {
		return nil
	}
	man := *gender == domain.GenderMale || *gender == "M"
	return &man
}
