// Package validation decodes request payloads against closed schemas and
// applies the field rules declared in `validate` struct tags.
//
// Schemas are plain structs. The `json` tag names the field on the wire, the
// `validate` tag holds go-playground/validator rules and the optional `msg`
// tag is the message reported when a rule other than required fails or the
// value has the wrong type.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kilosha/todo-api/internal/apperror"
)

const (
	LocationBody   = "body"
	LocationQuery  = "query"
	LocationParams = "params"
)

const minPasswordLength = 8

type field struct {
	index  int
	goName string
	name   string
	msg    string
}

type schema struct {
	fields []field
	byName map[string]int
	byGo   map[string]int
}

// Validator is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	schemas  sync.Map
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		return jsonName(sf)
	})
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("nonblank", nonBlank)
	_ = v.RegisterValidation("strongpassword", strongPassword)
	return &Validator{validate: v}
}

// DecodeJSON fills dst, a pointer to a schema struct, from body and returns
// every violation found. Unknown keys, type mismatches and rule failures are
// all collected; an empty result means dst is valid.
func (v *Validator) DecodeJSON(body []byte, dst any) []apperror.Violation {
	sc := v.schemaOf(dst)
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return []apperror.Violation{{
			Msg:      "request body must be a JSON object",
			Location: LocationBody,
		}}
	}

	var violations []apperror.Violation
	if unknown := unknownKeys(sc, keysOf(raw)); len(unknown) > 0 {
		violations = append(violations, apperror.Violation{
			Msg:      "unknown fields: " + strings.Join(unknown, ", "),
			Location: LocationBody,
		})
	}

	target := reflect.ValueOf(dst).Elem()
	values := make(map[string]any, len(raw))
	typeErrors := make(map[string]bool)
	for _, f := range sc.fields {
		msg, ok := raw[f.name]
		if !ok {
			continue
		}
		values[f.name] = rawValue(msg)
		if err := json.Unmarshal(msg, target.Field(f.index).Addr().Interface()); err != nil {
			typeErrors[f.name] = true
		}
	}

	return append(violations, v.check(sc, dst, values, typeErrors, LocationBody)...)
}

// DecodeQuery fills dst from query parameters. Only string, int and bool
// fields (or pointers to them) are supported; the first value of each key is
// used.
func (v *Validator) DecodeQuery(query url.Values, dst any) []apperror.Violation {
	sc := v.schemaOf(dst)

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}

	var violations []apperror.Violation
	if unknown := unknownKeys(sc, keys); len(unknown) > 0 {
		violations = append(violations, apperror.Violation{
			Msg:      "unknown query parameters: " + strings.Join(unknown, ", "),
			Location: LocationQuery,
		})
	}

	target := reflect.ValueOf(dst).Elem()
	values := make(map[string]any, len(query))
	typeErrors := make(map[string]bool)
	for _, f := range sc.fields {
		if _, ok := query[f.name]; !ok {
			continue
		}
		value := query.Get(f.name)
		values[f.name] = value
		if err := setFromString(target.Field(f.index), value); err != nil {
			typeErrors[f.name] = true
		}
	}

	return append(violations, v.check(sc, dst, values, typeErrors, LocationQuery)...)
}

// ID checks that a path parameter is a canonical identifier.
func ID(param, value string) []apperror.Violation {
	if IsID(value) {
		return nil
	}
	return []apperror.Violation{{
		Value:    value,
		Msg:      param + " must be a valid identifier",
		Param:    param,
		Location: LocationParams,
	}}
}

// IsID reports whether value is a UUID in canonical form.
func IsID(value string) bool {
	id, err := uuid.Parse(value)
	return err == nil && id.String() == strings.ToLower(value)
}

func (v *Validator) check(sc *schema, dst any, values map[string]any, typeErrors map[string]bool, location string) []apperror.Violation {
	byField := make(map[string]apperror.Violation)
	for name := range typeErrors {
		f := sc.fields[sc.byName[name]]
		byField[name] = apperror.Violation{
			Value:    values[name],
			Msg:      messageFor(f, "type", ""),
			Param:    name,
			Location: location,
		}
	}

	if err := v.validate.Struct(dst); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			panic(fmt.Sprintf("validation: %v", err))
		}
		for _, fe := range errs {
			name := fe.Field()
			if _, seen := byField[name]; seen {
				continue
			}
			idx, ok := sc.byName[name]
			if !ok {
				continue
			}
			value, present := values[name]
			if !present && values == nil {
				value = fe.Value()
			}
			byField[name] = apperror.Violation{
				Value:    value,
				Msg:      messageFor(sc.fields[idx], fe.Tag(), sc.jsonNameOf(fe.Param())),
				Param:    name,
				Location: location,
			}
		}
	}

	var violations []apperror.Violation
	for _, f := range sc.fields {
		if violation, ok := byField[f.name]; ok {
			violations = append(violations, violation)
		}
	}
	return violations
}

func messageFor(f field, tag, param string) string {
	switch tag {
	case "required":
		return f.name + " is required"
	case "required_without":
		return fmt.Sprintf("either %s or %s is required", f.name, param)
	case "excluded_with":
		return fmt.Sprintf("%s cannot be sent together with %s", f.name, param)
	}
	if f.msg != "" {
		return f.msg
	}
	return f.name + " is invalid"
}

func (v *Validator) schemaOf(dst any) *schema {
	t := reflect.TypeOf(dst)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("validation: %T is not a pointer to a struct", dst))
	}
	t = t.Elem()
	if cached, ok := v.schemas.Load(t); ok {
		return cached.(*schema)
	}

	sc := &schema{byName: map[string]int{}, byGo: map[string]int{}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := jsonName(sf)
		if !sf.IsExported() || name == "" {
			continue
		}
		sc.byName[name] = len(sc.fields)
		sc.byGo[sf.Name] = len(sc.fields)
		sc.fields = append(sc.fields, field{
			index:  i,
			goName: sf.Name,
			name:   name,
			msg:    sf.Tag.Get("msg"),
		})
	}
	actual, _ := v.schemas.LoadOrStore(t, sc)
	return actual.(*schema)
}

func (sc *schema) jsonNameOf(goName string) string {
	if idx, ok := sc.byGo[goName]; ok {
		return sc.fields[idx].name
	}
	return goName
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return sf.Name
	}
	return name
}

func keysOf(raw map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	return keys
}

func unknownKeys(sc *schema, keys []string) []string {
	var unknown []string
	for _, key := range keys {
		if _, ok := sc.byName[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func rawValue(msg json.RawMessage) any {
	var value any
	if err := json.Unmarshal(msg, &value); err != nil {
		return string(msg)
	}
	return value
}

func setFromString(dst reflect.Value, value string) error {
	target := dst
	if dst.Kind() == reflect.Pointer {
		target = reflect.New(dst.Type().Elem()).Elem()
	}

	switch target.Kind() {
	case reflect.String:
		target.SetString(value)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		target.SetInt(n)
	case reflect.Bool:
		switch value {
		case "true":
			target.SetBool(true)
		case "false":
			target.SetBool(false)
		default:
			return fmt.Errorf("invalid boolean %q", value)
		}
	default:
		return fmt.Errorf("unsupported query field kind %s", target.Kind())
	}

	if dst.Kind() == reflect.Pointer {
		dst.Set(target.Addr())
	}
	return nil
}

func nonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// strongPassword requires at least eight characters with a lower case
// letter, an upper case letter, a digit and a symbol.
func strongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if utf8.RuneCountInString(password) < minPasswordLength {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}
