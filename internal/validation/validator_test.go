package validation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name     string  `json:"name" validate:"required,nonblank" msg:"name must be a non-empty string"`
	Email    string  `json:"email" validate:"required,email" msg:"enter a valid email (example@example.com)"`
	Password string  `json:"password" validate:"required,strongpassword" msg:"weak password"`
	IsMan    *bool   `json:"isMan" validate:"required_without=Gender,excluded_with=Gender" msg:"isMan must be true or false"`
	Gender   *string `json:"gender" validate:"omitnil,oneof=male female M F" msg:"gender must be one of male, female, M, F"`
	Age      *int    `json:"age" validate:"required,min=10,max=100" msg:"age must be an integer from 10 to 100"`
}

type patch struct {
	Name *string `json:"name" validate:"omitnil,nonblank" msg:"name must be a non-empty string"`
	Age  *int    `json:"age" validate:"omitnil,min=10,max=100" msg:"age must be an integer from 10 to 100"`
}

type listing struct {
	Min  *int  `json:"min" validate:"omitnil,min=10,max=100" msg:"min must be an integer from 10 to 100"`
	Done *bool `json:"done" msg:"done must be true or false"`
}


func paramsOf(t *testing.T, body string, dst any) []string {
	t.Helper()
	var out []string
	for _, v := range New().DecodeJSON([]byte(body), dst) {
		out = append(out, v.Param)
	}
	return out
}

func TestDecodeJSON_Valid(t *testing.T) {
	var s signup
	violations := New().DecodeJSON([]byte(`{"name":"Max","email":"m1@x.com","password":"Aa1!aaaa","isMan":true,"age":25}`), &s)
	require.Empty(t, violations)
	assert.Equal(t, "Max", s.Name)
	require.NotNil(t, s.IsMan)
	assert.True(t, *s.IsMan)
	assert.Equal(t, 25, *s.Age)
}

func TestDecodeJSON_UnknownFields(t *testing.T) {
	var s patch
	violations := New().DecodeJSON([]byte(`{"name":"Max","zeta":1,"alpha":2}`), &s)
	require.Len(t, violations, 1)
	assert.Equal(t, "unknown fields: alpha, zeta", violations[0].Msg)
	assert.Equal(t, "", violations[0].Param)
	assert.Equal(t, LocationBody, violations[0].Location)
}

func TestDecodeJSON_NotAnObject(t *testing.T) {
	for _, body := range []string{`[]`, `"x"`, `null`, `{`} {
		violations := New().DecodeJSON([]byte(body), &patch{})
		require.Len(t, violations, 1, body)
		assert.Equal(t, "request body must be a JSON object", violations[0].Msg)
	}
}

func TestDecodeJSON_CollectsEveryField(t *testing.T) {
	var s signup
	violations := New().DecodeJSON([]byte(`{"name":"  ","email":"nope","password":"short","age":"old"}`), &s)

	require.Len(t, violations, 5)
	assert.Equal(t, "name", violations[0].Param)
	assert.Equal(t, "name must be a non-empty string", violations[0].Msg)
	assert.Equal(t, "email", violations[1].Param)
	assert.Equal(t, "password", violations[2].Param)
	assert.Equal(t, "isMan", violations[3].Param)
	assert.Equal(t, "either isMan or gender is required", violations[3].Msg)
	assert.Equal(t, "age", violations[4].Param)
	assert.Equal(t, "age must be an integer from 10 to 100", violations[4].Msg)
	assert.Equal(t, "old", violations[4].Value)
}

func TestDecodeJSON_RequiredMessage(t *testing.T) {
	var s signup
	violations := New().DecodeJSON(nil, &s)
	require.NotEmpty(t, violations)
	assert.Equal(t, "name is required", violations[0].Msg)
	assert.Nil(t, violations[0].Value)
}

func TestDecodeJSON_AgeBoundaries(t *testing.T) {
	tests := []struct {
		body  string
		valid bool
	}{
		{`{"age":9}`, false},
		{`{"age":10}`, true},
		{`{"age":100}`, true},
		{`{"age":101}`, false},
		{`{"age":25.5}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got := paramsOf(t, tt.body, &patch{})
			if tt.valid {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, []string{"age"}, got)
			}
		})
	}
}

func TestDecodeJSON_GenderAlternatives(t *testing.T) {
	base := `"name":"Max","email":"m1@x.com","password":"Aa1!aaaa","age":25`

	assert.Empty(t, paramsOf(t, `{`+base+`,"gender":"F"}`, &signup{}))
	assert.Empty(t, paramsOf(t, `{`+base+`,"gender":"male"}`, &signup{}))
	assert.Equal(t, []string{"gender"}, paramsOf(t, `{`+base+`,"gender":"x"}`, &signup{}))
	assert.Equal(t, []string{"isMan"}, paramsOf(t, `{`+base+`,"gender":"M","isMan":true}`, &signup{}))
	assert.Equal(t, []string{"isMan"}, paramsOf(t, `{`+base+`,"isMan":"yes"}`, &signup{}))
}

func TestStrongPassword(t *testing.T) {
	tests := map[string]bool{
		"Aa1!aaaa":  true,
		"Aa1 aaaa":  true,
		"Aa1!aaa":   false,
		"aa1!aaaa":  false,
		"AA1!AAAA":  false,
		"Aaa!aaaa":  false,
		"Aa1aaaaa":  false,
		"Пароль1!a": true,
	}
	for password, valid := range tests {
		body := `{"name":"n","email":"e@x.com","password":"` + password + `","isMan":true,"age":20}`
		got := paramsOf(t, body, &signup{})
		if valid {
			assert.Empty(t, got, password)
		} else {
			assert.Equal(t, []string{"password"}, got, password)
		}
	}
}

func TestDecodeQuery(t *testing.T) {
	v := New()

	var ok listing
	require.Empty(t, v.DecodeQuery(url.Values{"min": {"20"}, "done": {"true"}}, &ok))
	assert.Equal(t, 20, *ok.Min)
	assert.True(t, *ok.Done)

	var empty listing
	require.Empty(t, v.DecodeQuery(url.Values{}, &empty))
	assert.Nil(t, empty.Min)

	violations := v.DecodeQuery(url.Values{"min": {"5"}, "done": {"yes"}, "sort": {"asc"}}, &listing{})
	require.Len(t, violations, 3)
	assert.Equal(t, "unknown query parameters: sort", violations[0].Msg)
	assert.Equal(t, "min", violations[1].Param)
	assert.Equal(t, LocationQuery, violations[1].Location)
	assert.Equal(t, "5", violations[1].Value)
	assert.Equal(t, "done must be true or false", violations[2].Msg)
}

func TestID(t *testing.T) {
	assert.Empty(t, ID("id", "6f1c1f4e-3f4b-4bb0-9d6a-0d0c3b1e7a21"))
	assert.True(t, IsID("6F1C1F4E-3F4B-4BB0-9D6A-0D0C3B1E7A21"))

	violations := ID("id", "123")
	require.Len(t, violations, 1)
	assert.Equal(t, LocationParams, violations[0].Location)
	assert.Equal(t, "id must be a valid identifier", violations[0].Msg)
	assert.False(t, IsID("{6f1c1f4e-3f4b-4bb0-9d6a-0d0c3b1e7a21}"))
}
