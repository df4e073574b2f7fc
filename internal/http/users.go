package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilosha/todo-api/internal/domain"
)

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsMan     bool   `json:"isMan"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usersToResponse(users))
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) filterUsers(c *gin.Context) {
	result, err := h.users.FilterByParam(c.Request.Context(), c.Param("param"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if result.User != nil {
		c.JSON(http.StatusOK, userToResponse(*result.User))
		return
	}
	c.JSON(http.StatusOK, usersToResponse(result.Users))
}

func (h *Handler) registerUser(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	user, err := h.users.Register(c.Request.Context(), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) replaceUser(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	user, err := h.users.Replace(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) patchUser(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	user, err := h.users.Patch(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	user, err := h.users.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		Email:     user.Email,
		IsMan:     user.IsMan,
		Gender:    user.Gender(),
		Age:       user.Age,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func usersToResponse(users []domain.User) []UserResponse {
	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	return resp
}
