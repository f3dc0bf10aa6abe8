package services

import "errors"

// ValidationError is a problem with user input; its message is safe to show
// next to the form that produced it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrAlreadySubscribed = &ValidationError{Field: "email", Message: "This email is already subscribed to our newsletter."}
	ErrDuplicateTitle    = &ValidationError{Field: "title", Message: "A blog post with this title already exists."}
	ErrPasswordMismatch  = &ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	ErrInvalidPrice      = &ValidationError{Field: "price", Message: "Price must be a non-negative amount like $24.99"}
	ErrEmailTaken        = &ValidationError{Field: "email", Message: "An account with this email already exists."}
)

// AsValidation unwraps err into a ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
