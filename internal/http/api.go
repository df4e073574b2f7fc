package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kilosha/todo-api/internal/apperror"
	"github.com/kilosha/todo-api/internal/auth"
	"github.com/kilosha/todo-api/internal/service"
)

const maxBodyBytes = 1 << 20

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	todos  service.TodoService
	login  service.AuthService
	tokens *auth.TokenIssuer
	log    *logrus.Logger
}

func NewHandler(users service.UserService, todos service.TodoService, login service.AuthService, tokens *auth.TokenIssuer, log *logrus.Logger) *Handler {
	return &Handler{
		users:  users,
		todos:  todos,
		login:  login,
		tokens: tokens,
		log:    log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger(), corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		api.POST("/auth/login", h.loginUser)

		users := api.Group("/users")
		users.GET("", h.listUsers)
		users.POST("/register", h.registerUser)
		users.GET("/user/:id", h.getUser)
		users.GET("/:param", h.filterUsers)

		owner := users.Group("", h.requireAuth(), h.requireOwner())
		owner.PUT("/:id", h.replaceUser)
		owner.PATCH("/:id", h.patchUser)
		owner.DELETE("/:id", h.deleteUser)

		todos := api.Group("/todos", h.requireAuth())
		todos.GET("", h.listTodos)
		todos.POST("", h.createTodo)
		todos.PATCH("/:id", h.renameTodo)
		todos.PATCH("/:id/isCompleted", h.toggleTodo)
		todos.DELETE("/:id", h.deleteTodo)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		h.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Info("request handled")
	}
}

// readBody returns the raw request body, bounded by maxBodyBytes.
func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, apperror.NewBadRequest(fmt.Sprintf("cannot read request body: %v", err))
	}
	return body, nil
}

// writeError renders err. Field and uniqueness failures carry the violation
// list; anything untyped is logged and hidden behind a generic message.
func (h *Handler) writeError(c *gin.Context, err error) {
	appErr, ok := apperror.From(err)
	if !ok {
		appErr = apperror.NewInternal(err)
	}

	switch appErr.Kind {
	case apperror.Validation, apperror.Conflict:
		c.JSON(appErr.StatusCode(), gin.H{"success": false, "errors": appErr.Violations})
	case apperror.Internal:
		h.log.WithError(appErr.Err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": appErr.Message})
	default:
		c.JSON(appErr.StatusCode(), gin.H{"message": appErr.Message})
	}
}
