package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kilosha/todo-api/internal/auth"
	"github.com/kilosha/todo-api/internal/repository/memory"
	"github.com/kilosha/todo-api/internal/service"
	"github.com/kilosha/todo-api/internal/validation"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	v := validation.New()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := NewHandler(
		service.NewUserService(store.Users(), store.Todos(), v, bcrypt.MinCost),
		service.NewTodoService(store.Todos(), store.Users(), v),
		service.NewAuthService(store.Users(), tokens, v),
		tokens,
		log,
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token, body string) (int, map[string]any, []byte) {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var obj map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &obj)
	return rec.Code, obj, rec.Body.Bytes()
}

func (s *testServer) register(username, email string) string {
	s.t.Helper()
	code, body, _ := s.do(http.MethodPost, "/api/users/register", "",
		`{"name":"Name","username":"`+username+`","email":"`+email+`","password":"Aa1!aaaa","age":25,"isMan":true}`)
	require.Equal(s.t, http.StatusOK, code, body)
	return body["id"].(string)
}

func (s *testServer) loginAs(email string) string {
	s.t.Helper()
	code, body, _ := s.do(http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"Aa1!aaaa"}`)
	require.Equal(s.t, http.StatusOK, code, body)
	return body["token"].(string)
}

func errorParams(body map[string]any) []string {
	var params []string
	errs, _ := body["errors"].([]any)
	for _, e := range errs {
		if m, ok := e.(map[string]any); ok {
			params = append(params, m["param"].(string))
		}
	}
	return params
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body, _ := s.do(http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["ok"])
}

func TestRegisterOmitsPassword(t *testing.T) {
	s := newTestServer(t)

	code, body, raw := s.do(http.MethodPost, "/api/users/register", "",
		`{"name":"Max","username":"m1","email":"m1@x.com","password":"Aa1!aaaa","age":25,"isMan":true}`)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "male", body["gender"])
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "Aa1!aaaa")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.register("m1", "m1@x.com")

	code, body, _ := s.do(http.MethodPost, "/api/users/register", "",
		`{"name":"Max","username":"m2","email":"m1@x.com","password":"Aa1!aaaa","age":25,"isMan":true}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, errorParams(body), "email")
}

func TestRegisterAgeRange(t *testing.T) {
	s := newTestServer(t)

	code, body, _ := s.do(http.MethodPost, "/api/users/register", "",
		`{"name":"Max","username":"m1","email":"m1@x.com","password":"Aa1!aaaa","age":101,"isMan":true}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"age"}, errorParams(body))
}

func TestGetUserIsStable(t *testing.T) {
	s := newTestServer(t)
	id := s.register("m1", "m1@x.com")

	code1, _, first := s.do(http.MethodGet, "/api/users/user/"+id, "", "")
	code2, _, second := s.do(http.MethodGet, "/api/users/user/"+id, "", "")
	assert.Equal(t, http.StatusOK, code1)
	assert.Equal(t, http.StatusOK, code2)
	assert.JSONEq(t, string(first), string(second))

	code, body, _ := s.do(http.MethodGet, "/api/users/user/123", "", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"id"}, errorParams(body))
}

func TestFilterUsersByParam(t *testing.T) {
	s := newTestServer(t)
	id := s.register("m1", "m1@x.com")

	code, _, raw := s.do(http.MethodGet, "/api/users/M", "", "")
	assert.Equal(t, http.StatusOK, code)
	var men []UserResponse
	require.NoError(t, json.Unmarshal(raw, &men))
	assert.Len(t, men, 1)

	code, _, raw = s.do(http.MethodGet, "/api/users/F", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(raw))

	code, body, _ := s.do(http.MethodGet, "/api/users/"+id, "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, body["id"])

	code, body, _ = s.do(http.MethodGet, "/api/users/X", "", "")
	assert.Equal(t, http.StatusBadRequest, code)
	errs := body["errors"].([]any)
	assert.Equal(t, "filter is only possible by F, M or identifier", errs[0].(map[string]any)["msg"])
}

func TestListUsersQuery(t *testing.T) {
	s := newTestServer(t)
	s.register("m1", "m1@x.com")

	code, _, raw := s.do(http.MethodGet, "/api/users?min=20&max=30", "", "")
	assert.Equal(t, http.StatusOK, code)
	var users []UserResponse
	require.NoError(t, json.Unmarshal(raw, &users))
	assert.Len(t, users, 1)

	code, _, _ = s.do(http.MethodGet, "/api/users?min=40&max=30", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = s.do(http.MethodGet, "/api/users?sort=name", "", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdateRequiresOwnership(t *testing.T) {
	s := newTestServer(t)
	me := s.register("m1", "m1@x.com")
	other := s.register("m2", "m2@x.com")
	token := s.loginAs("m1@x.com")

	code, body, _ := s.do(http.MethodPatch, "/api/users/"+other, "", `{"age":30}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "authorization token is required", body["message"])

	code, body, _ = s.do(http.MethodPatch, "/api/users/"+other, "garbage", `{"age":30}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid token", body["message"])

	for _, payload := range []string{`{"age":30}`, `{"age":"bad","extra":1}`} {
		code, _, _ = s.do(http.MethodPatch, "/api/users/"+other, token, payload)
		assert.Equal(t, http.StatusForbidden, code, payload)
	}
	code, _, _ = s.do(http.MethodPut, "/api/users/"+other, token, `{}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _, _ = s.do(http.MethodDelete, "/api/users/"+other, token, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, body, _ = s.do(http.MethodPatch, "/api/users/"+me, token, `{"age":30}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(30), body["age"])

	code, body, _ = s.do(http.MethodDelete, "/api/users/"+me, token, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, me, body["id"])
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.register("m1", "m1@x.com")

	code, body, _ := s.do(http.MethodPost, "/api/auth/login", "", `{"email":"nobody@x.com","password":"Aa1!aaaa"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "user with this email does not exist", body["message"])

	code, body, _ = s.do(http.MethodPost, "/api/auth/login", "", `{"email":"m1@x.com","password":"Aa1!aaab"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "incorrect password", body["message"])
}

func TestTodoFlow(t *testing.T) {
	s := newTestServer(t)
	s.register("m1", "m1@x.com")
	s.register("m2", "m2@x.com")
	token := s.loginAs("m1@x.com")
	intruder := s.loginAs("m2@x.com")

	code, _, _ := s.do(http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, created, _ := s.do(http.MethodPost, "/api/todos", token, `{"title":"milk"}`)
	require.Equal(t, http.StatusOK, code)
	id := created["id"].(string)

	code, _, raw := s.do(http.MethodGet, "/api/todos", token, "")
	require.Equal(t, http.StatusOK, code)
	var todos []TodoResponse
	require.NoError(t, json.Unmarshal(raw, &todos))
	require.Len(t, todos, 1)
	assert.Equal(t, "milk", todos[0].Title)
	assert.False(t, todos[0].IsCompleted)

	code, body, _ := s.do(http.MethodPatch, "/api/todos/"+id+"/isCompleted", token, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["isCompleted"])

	code, body, _ = s.do(http.MethodPatch, "/api/todos/"+id, token, `{"title":"bread"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bread", body["title"])

	code, _, raw = s.do(http.MethodGet, "/api/todos?isCompleted=false", token, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(raw))

	code, body, _ = s.do(http.MethodDelete, "/api/todos/"+id, intruder, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no such task for this user", body["message"])

	code, _, _ = s.do(http.MethodDelete, "/api/todos/"+id, token, "")
	assert.Equal(t, http.StatusOK, code)

	code, body, _ = s.do(http.MethodDelete, "/api/todos/"+id, token, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no such task for this user", body["message"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	code, _, _ := s.do(http.MethodOptions, "/api/todos", "", "")
	assert.Equal(t, http.StatusNoContent, code)
}

func TestTodoCreateAfterAccountDeletion(t *testing.T) {
	s := newTestServer(t)
	id := s.register("m1", "m1@x.com")
	token := s.loginAs("m1@x.com")

	code, _, _ := s.do(http.MethodDelete, "/api/users/"+id, token, "")
	require.Equal(t, http.StatusOK, code)

	code, body, _ := s.do(http.MethodPost, "/api/todos", token, `{"title":"milk"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "account no longer exists", body["message"])
}
