package packages

import "errors"

var (
	// ErrEmptyQuery is returned when a query is empty after normalization.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmptyPackageID is returned when an operation needs a package id and none was given.
	ErrEmptyPackageID = errors.New("package id is empty")
)

// ValidationError describes input rejected before any I/O happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is (or wraps) an input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrEmptyQuery) || errors.Is(err, ErrEmptyPackageID)
}
