// Package signin holds the portal sign-in rules: form validation, password
// and OTP login, two-factor challenges and the remember-me decision.
package signin

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form is what the sign-in page submits.
type Form struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

const (
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Invalid email format"
	MsgPasswordRequired = "Password is required"
)

// FieldErrors maps a form field to the message shown under it.
type FieldErrors map[string]string

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldMessages = map[string]map[string]string{
	"Email":    {"required": MsgEmailRequired, "email": MsgEmailInvalid},
	"Password": {"required": MsgPasswordRequired},
}

var fieldNames = map[string]string{"Email": "email", "Password": "password"}

// Validate reports the first failing rule of every invalid field, or nil.
func (f Form) Validate() FieldErrors {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"form": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		name := fieldNames[fe.StructField()]
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = fieldMessages[fe.StructField()][fe.Tag()]
	}
	return out
}

// Credentials returns what is sent to the backend. The password is trimmed.
func (f Form) Credentials() Credentials {
	return Credentials{Email: f.Email, Password: strings.TrimSpace(f.Password)}
}

// validateEmail applies the form's email rules to a lone address.
func validateEmail(email string) string {
	if email == "" {
		return MsgEmailRequired
	}
	if err := validate.Var(email, "email"); err != nil {
		return MsgEmailInvalid
	}
	return ""
}
