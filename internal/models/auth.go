package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// An empty value clears the field; anything else must be an http(s) URL.
	v.RegisterValidation("http_url_or_empty", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || v.Var(s, "http_url") == nil
	})
	return v
}

// RegisterRequest defines the structure for registration requests.
type RegisterRequest struct {
	Username    string  `json:"username" validate:"min=3,max=50"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"min=8"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=100"`
}

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest carries the profile fields a user may change. Nil means unchanged.
type UpdateUserRequest struct {
	DisplayName       *string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Bio               *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty" validate:"omitempty,http_url_or_empty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// MessageResponse is a bare message body, used for errors and acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// Validate checks a request payload against its validate tags and returns a
// ValidationError describing every failing field.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewInternalError(fmt.Errorf("validate payload: %w", err))
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return NewValidationError("Validation error: " + strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if fe.Param() == "1" {
			return field + " is required"
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "http_url", "http_url_or_empty":
		return field + " must be a valid http or https URL"
	default:
		return field + " is invalid"
	}
}
