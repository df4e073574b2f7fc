package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kilosha/todo-api/internal/apperror"
	"github.com/kilosha/todo-api/internal/auth"
)

func (h *Handler) loginUser(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	token, err := h.login.Login(c.Request.Context(), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// requireAuth rejects requests without a valid bearer token. Every parse
// failure gets the same answer.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, _ := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
		token = strings.TrimSpace(token)
		if scheme == "" || (strings.EqualFold(scheme, "bearer") && token == "") {
			h.abort(c, apperror.NewUnauthorized("authorization token is required"))
			return
		}
		if !strings.EqualFold(scheme, "bearer") {
			h.abort(c, apperror.NewUnauthorized("invalid token"))
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			h.abort(c, apperror.NewUnauthorized("invalid token"))
			return
		}

		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// requireOwner lets a caller modify only the user record named by :id.
func (h *Handler) requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok || claims.ID != c.Param("id") {
			h.abort(c, apperror.NewForbidden("you can only modify your own account"))
			return
		}
		c.Next()
	}
}

func (h *Handler) abort(c *gin.Context, err error) {
	h.writeError(c, err)
	c.Abort()
}

func callerID(c *gin.Context) string {
	if claims, ok := auth.ClaimsFromContext(c.Request.Context()); ok {
		return claims.ID
	}
	return ""
}
