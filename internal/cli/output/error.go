package output

import (
	"context"
	"errors"

	"github.com/softfinder/softfinder-go/internal/cmdrunner"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/resolver"
)

// StructuredError is a CLI failure with a machine-readable code.
type StructuredError struct {
	Code            string                 `json:"code" yaml:"code"`
	Message         string                 `json:"message" yaml:"message"`
	Guidance        string                 `json:"guidance,omitempty" yaml:"guidance,omitempty"`
	RecoveryCommand string                 `json:"recovery_command,omitempty" yaml:"recovery_command,omitempty"`
	Context         map[string]interface{} `json:"context,omitempty" yaml:"context,omitempty"`
	RequestID       string                 `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

// Error implements the error interface for StructuredError.
func (e StructuredError) Error() string {
	return e.Message
}

// Error codes
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidOutputFormat = "INVALID_OUTPUT_FORMAT"
	ErrCodeConfigInvalid       = "CONFIG_INVALID"
	ErrCodeSourceUnavailable   = "SOURCE_UNAVAILABLE"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeNeedsElevation      = "NEEDS_ELEVATION"
	ErrCodeInstallFailed       = "INSTALL_FAILED"
	ErrCodeOperationFailed     = "OPERATION_FAILED"
)

// NewStructuredError creates a new StructuredError with the given code and message.
func NewStructuredError(code, message string) StructuredError {
	return StructuredError{
		Code:    code,
		Message: message,
	}
}

// WithGuidance adds guidance to the error.
func (e StructuredError) WithGuidance(guidance string) StructuredError {
	e.Guidance = guidance
	return e
}

// WithRecoveryCommand adds a recovery command suggestion.
func (e StructuredError) WithRecoveryCommand(cmd string) StructuredError {
	e.RecoveryCommand = cmd
	return e
}

// WithContext adds context data to the error.
func (e StructuredError) WithContext(key string, value interface{}) StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// FromError classifies err into a StructuredError. Already structured errors pass through.
func FromError(err error) StructuredError {
	var se StructuredError
	if errors.As(err, &se) {
		return se
	}

	var srcErr *resolver.SourceError
	var exitErr *cmdrunner.ExitError
	switch {
	case packages.IsValidation(err):
		return NewStructuredError(ErrCodeInvalidInput, err.Error())
	case errors.Is(err, cmdrunner.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return NewStructuredError(ErrCodeTimeout, err.Error()).
			WithGuidance("the package source did not answer in time; raise the timeout in the config file")
	case errors.As(err, &srcErr):
		return NewStructuredError(ErrCodeSourceUnavailable, err.Error()).
			WithContext("source", string(srcErr.Source))
	case errors.As(err, &exitErr):
		return NewStructuredError(ErrCodeSourceUnavailable, err.Error()).
			WithContext("exit_code", exitErr.Code)
	default:
		return NewStructuredError(ErrCodeOperationFailed, err.Error())
	}
}
