package main

import (
	"errors"
	"net/http"
	"os"

	bolterrors "go.etcd.io/bbolt/errors"

	"github.com/softfinder/softfinder-go/internal/cli/output"
	"github.com/softfinder/softfinder-go/internal/cliclient"
	"github.com/softfinder/softfinder-go/internal/server"
)

// Exit codes for softfinder so scripts can react to specific failures

const (
	// ExitCodeSuccess indicates normal program termination
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates a generic error (default)
	ExitCodeGeneralError = 1

	// ExitCodePortConflict indicates the listen port is already in use
	ExitCodePortConflict = 2

	// ExitCodeDBLocked indicates the history database is locked by another process
	ExitCodeDBLocked = 3

	// ExitCodeConfigError indicates configuration validation failed
	ExitCodeConfigError = 4

	// ExitCodePermissionError indicates insufficient permissions (file access, port binding)
	ExitCodePermissionError = 5

	// ExitCodeNeedsElevation indicates an install must be re-run as administrator
	ExitCodeNeedsElevation = 6
)

// exitCodeDescription returns a human-readable description of the exit code
func exitCodeDescription(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "Success"
	case ExitCodeGeneralError:
		return "General error"
	case ExitCodePortConflict:
		return "Port conflict - address already in use"
	case ExitCodeDBLocked:
		return "Database locked by another process"
	case ExitCodeConfigError:
		return "Configuration error"
	case ExitCodePermissionError:
		return "Permission denied"
	case ExitCodeNeedsElevation:
		return "Administrator rights required"
	default:
		return "Unknown error"
	}
}

// configError marks failures to load or validate the configuration.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// installError is an install that ran but did not succeed.
type installError struct {
	message        string
	needsElevation bool
}

func (e *installError) Error() string { return e.message }

// exitCodeFor maps an error returned by a command to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var portErr *server.PortInUseError
	var cfgErr *configError
	var instErr *installError
	switch {
	case errors.As(err, &portErr):
		return ExitCodePortConflict
	case errors.Is(err, bolterrors.ErrTimeout):
		return ExitCodeDBLocked
	case errors.As(err, &cfgErr):
		return ExitCodeConfigError
	case errors.Is(err, os.ErrPermission):
		return ExitCodePermissionError
	case errors.As(err, &instErr) && instErr.needsElevation:
		return ExitCodeNeedsElevation
	default:
		return ExitCodeGeneralError
	}
}

// toStructuredError classifies err for display, including errors relayed by a running server.
func toStructuredError(err error) output.StructuredError {
	var cfgErr *configError
	var instErr *installError
	var apiErr *cliclient.APIError
	var portErr *server.PortInUseError

	switch {
	case errors.As(err, &cfgErr):
		return output.NewStructuredError(output.ErrCodeConfigInvalid, err.Error()).
			WithGuidance("fix the configuration file or remove it to use the defaults")
	case errors.As(err, &portErr):
		return output.NewStructuredError(output.ErrCodeOperationFailed, err.Error()).
			WithGuidance("another process is using the address; pick a different one").
			WithRecoveryCommand("softfinder serve --listen 127.0.0.1:0")
	case errors.Is(err, bolterrors.ErrTimeout):
		return output.NewStructuredError(output.ErrCodeOperationFailed, err.Error()).
			WithGuidance("another softfinder process holds the history database")
	case errors.As(err, &instErr) && instErr.needsElevation:
		return output.NewStructuredError(output.ErrCodeNeedsElevation, err.Error()).
			WithGuidance("re-run the command from an elevated (administrator) terminal")
	case errors.As(err, &instErr):
		return output.NewStructuredError(output.ErrCodeInstallFailed, err.Error())
	case errors.As(err, &apiErr):
		se := output.NewStructuredError(apiErrorCode(apiErr.StatusCode), apiErr.Message)
		se.RequestID = apiErr.RequestID
		return se
	default:
		return output.FromError(err)
	}
}

func apiErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return output.ErrCodeInvalidInput
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return output.ErrCodeSourceUnavailable
	case http.StatusGatewayTimeout:
		return output.ErrCodeTimeout
	default:
		return output.ErrCodeOperationFailed
	}
}
