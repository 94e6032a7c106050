package api

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/soaringjerry/quizly/internal/services"
)

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// createQuizRequest leaves title and question rules to the quiz service so the
// failures carry their specific reason codes.
type createQuizRequest struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description" validate:"max=2000"`
	Questions   []services.QuestionInput `json:"questions" validate:"max=100,dive"`
}

type submitRequest struct {
	Answers        json.RawMessage `json:"answers"`
	SubmitterName  string          `json:"submitterName" validate:"max=200"`
	SubmitterEmail string          `json:"submitterEmail" validate:"max=254"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationDetails flattens validator failures into field/message pairs.
func validationDetails(err error) []fieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]fieldError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fieldError{Field: fe.Field(), Message: tagMessage(fe)})
	}
	return out
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
