package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
)

// Validation reason codes carried by ErrorInvalid service errors.
const (
	ReasonMalformedAnswers = "malformed-answers"
	ReasonMissingRequired  = "missing-required"
	ReasonInvalidAnswer    = "invalid-answer"
	ReasonUnknownQuestion  = "unknown-question"
	ReasonDuplicateAnswer  = "duplicate-answer"
	ReasonInvalidOption    = "invalid-option"
	ReasonInvalidTitle     = "invalid-title"
	ReasonTooFewQuestions  = "too-few-questions"
	ReasonInvalidQuestion  = "invalid-question"
	ReasonInvalidOptions   = "invalid-options"
	ReasonInvalidPayload   = "invalid-payload"
)

var (
	// ErrQuizNotFound is matched by every not-found error about a quiz.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound is returned when a token refers to a deleted account.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by stores when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	// Reason is a machine-checkable code for ErrorInvalid failures.
	Reason string
	// Detail lists offending items, e.g. the texts of unanswered required questions.
	Detail []string
	err    error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.err }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

// NewValidationError builds an ErrorInvalid failure carrying a reason code.
func NewValidationError(reason, msg string, detail ...string) error {
	return &ServiceError{Code: ErrorInvalid, Message: msg, Reason: reason, Detail: detail}
}

func newQuizNotFoundError() error {
	return &ServiceError{Code: ErrorNotFound, Message: "quiz not found", err: ErrQuizNotFound}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ReasonOf returns the validation reason of err, or "" when err is not a validation failure.
func ReasonOf(err error) string {
	if se, ok := AsServiceError(err); ok && se.Code == ErrorInvalid {
		return se.Reason
	}
	return ""
}
