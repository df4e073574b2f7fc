package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilosha/todo-api/internal/domain"
)

type TodoResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
	UserID      string `json:"userId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (h *Handler) listTodos(c *gin.Context) {
	todos, err := h.todos.List(c.Request.Context(), callerID(c), c.Request.URL.Query())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]TodoResponse, len(todos))
	for i := range todos {
		resp[i] = todoToResponse(todos[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createTodo(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	todo, err := h.todos.Create(c.Request.Context(), callerID(c), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(*todo))
}

func (h *Handler) renameTodo(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	todo, err := h.todos.Rename(c.Request.Context(), callerID(c), c.Param("id"), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(*todo))
}

func (h *Handler) toggleTodo(c *gin.Context) {
	todo, err := h.todos.ToggleCompleted(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(*todo))
}

func (h *Handler) deleteTodo(c *gin.Context) {
	todo, err := h.todos.Delete(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(*todo))
}

func todoToResponse(todo domain.Todo) TodoResponse {
	return TodoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		IsCompleted: todo.IsCompleted,
		UserID:      todo.UserID,
		CreatedAt:   todo.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   todo.UpdatedAt.Format(time.RFC3339),
	}
}
