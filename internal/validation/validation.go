// Package validation checks request payloads against their declared shape
// and reports every violated constraint at once.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformedBody is returned when the request body is not valid JSON.
	ErrMalformedBody = errors.New("malformed request body")
	// ErrEmptyBody is returned when there is no body at all.
	ErrEmptyBody = errors.New("request body is empty")
)

// FieldError describes one violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Errors is the structured result of a failed validation.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("enum", isEnumMember)
	_ = v.RegisterValidation("alphanumspace", isAlphanumSpace)
	return v
}

type enumValue interface {
	Valid() bool
}

func isEnumMember(fl validator.FieldLevel) bool {
	f := fl.Field()
	if !f.CanInterface() {
		return false
	}
	e, ok := f.Interface().(enumValue)
	return ok && e.Valid()
}

// isAlphanumSpace accepts letters and digits separated by single spaces.
func isAlphanumSpace(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") || strings.Contains(s, "  ") {
		return false
	}
	for _, r := range s {
		if r != ' ' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Struct validates v and returns nil or Errors.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fromValidator(fe))
	}
	return out
}

// Decode reads a JSON body into v and validates it. Type mismatches are
// reported as a "type" violation on the offending field, keys v does not
// declare as an "unknown" violation.
func Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		if field, ok := unknownField(err); ok {
			return Errors{{
				Field:   field,
				Rule:    "unknown",
				Message: field + " is not allowed",
			}}
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return Errors{{
				Field:   field,
				Rule:    "type",
				Param:   typeErr.Type.String(),
				Message: fmt.Sprintf("%s must be of type %s", field, typeErr.Type.String()),
			}}
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return Struct(v)
}

// unknownField extracts the key named by the decoder's unknown field
// error, which has no typed form.
func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	field, uerr := strconv.Unquote(strings.TrimPrefix(msg, prefix))
	if uerr != nil {
		return "", false
	}
	return field, true
}

func fromValidator(fe validator.FieldError) FieldError {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return FieldError{
		Field:   field,
		Rule:    fe.Tag(),
		Param:   fe.Param(),
		Message: message(field, fe),
	}
}

func message(field string, fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "email":
		return field + " must be a valid email"
	case "hexadecimal":
		return field + " must be hexadecimal"
	case "enum":
		return fmt.Sprintf("%s has an unsupported value %q", field, fmt.Sprint(fe.Value()))
	case "alphanumspace":
		return field + " must only contain letters, digits and single spaces"
	}
	return fmt.Sprintf("%s failed the %s check", field, fe.Tag())
}
