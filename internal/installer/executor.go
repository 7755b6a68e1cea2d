// Package installer runs install commands produced by the package sources and
// classifies their outcome.
package installer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cmdrunner"
	"github.com/softfinder/softfinder-go/internal/config"
	"github.com/softfinder/softfinder-go/internal/logs"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/storage"
)

// Outcome classifies a finished install run.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeFailure        Outcome = "failure"
	OutcomeNeedsElevation Outcome = "needs-elevation"
)

// DefaultTimeout bounds a single install run.
const DefaultTimeout = 30 * time.Minute

const (
	// ERROR_ELEVATION_REQUIRED
	exitElevationRequired = 740
	// winget: installer requires administrator rights
	exitWingetElevation uint32 = 0x8A150056
)

var elevationText = regexp.MustCompile(`(?i)(administrator|elevat(ed|ion)|run as admin)`)

// Result describes one install run.
type Result struct {
	Command   string        `json:"command"`
	PackageID string        `json:"package_id,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	ExitCode  int           `json:"exit_code"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	HistoryID string        `json:"history_id,omitempty"`
}

// History stores executed operations.
type History interface {
	Append(record *storage.HistoryRecord) error
}

// Recorder receives install outcomes for metrics.
type Recorder interface {
	RecordInstall(outcome string)
}

// Options configures an Executor. Zero values fall back to defaults.
type Options struct {
	Runner   cmdrunner.Runner
	Timeout  time.Duration
	History  History
	Notifier Notifier
	Recorder Recorder
	// LogConfig enables a per-package install log under the log directory.
	LogConfig *config.LogConfig
	// GOOS selects the shell; defaults to runtime.GOOS.
	GOOS string
}

// Executor runs install commands through the platform shell.
type Executor struct {
	opts   Options
	logger *zap.Logger
}

// New creates an executor.
func New(opts Options, logger *zap.Logger) *Executor {
	if opts.Runner == nil {
		opts.Runner = cmdrunner.Exec{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{opts: opts, logger: logger.Named("installer")}
}

// Run executes command verbatim. Only an empty command is an error; a failed
// install is reported through Result.Outcome.
func (e *Executor) Run(ctx context.Context, command string) (Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{}, &packages.ValidationError{Field: "command", Message: "must not be empty"}
	}

	result := Result{
		Command:   command,
		PackageID: PackageIDFromCommand(command),
	}

	ctx, span := otel.Tracer("softfinder").Start(ctx, "installer.run")
	defer span.End()
	span.SetAttributes(attribute.String("install.package_id", result.PackageID))

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	shell, args := shellCommand(e.opts.GOOS, command)
	start := time.Now()
	out, err := e.opts.Runner.Output(runCtx, shell, args...)
	result.Duration = time.Since(start)
	result.Output = string(out)

	var exitErr *cmdrunner.ExitError
	switch {
	case err == nil:
		result.Outcome = OutcomeSuccess
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.Code
		result.Output = exitErr.Combined
		result.Error = exitErr.Error()
		result.Outcome = Classify(exitErr.Code, exitErr.Combined)
	default:
		result.ExitCode = -1
		result.Error = err.Error()
		result.Outcome = OutcomeFailure
	}

	span.SetAttributes(
		attribute.String("install.outcome", string(result.Outcome)),
		attribute.Int("install.exit_code", result.ExitCode),
	)
	if result.Outcome != OutcomeSuccess {
		span.SetStatus(codes.Error, result.Error)
	}

	e.logger.Info("Install finished",
		zap.String("command", command),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration))

	e.writeInstallLog(result)
	e.record(&result)
	return result, nil
}

// Classify maps a non-zero exit and its output to an outcome.
func Classify(exitCode int, output string) Outcome {
	if exitCode == 0 {
		return OutcomeSuccess
	}
	if exitCode == exitElevationRequired || uint32(exitCode) == exitWingetElevation {
		return OutcomeNeedsElevation
	}
	if elevationText.MatchString(output) {
		return OutcomeNeedsElevation
	}
	return OutcomeFailure
}

func shellCommand(goos, command string) (string, []string) {
	if goos == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}

var (
	wingetIDPattern = regexp.MustCompile(`--id\s+("[^"]+"|\S+)`)
	chocoPattern    = regexp.MustCompile(`(?i)^choco(?:\.exe)?\s+install\s+(\S+)`)
)

// PackageIDFromCommand extracts the package id from a winget or chocolatey
// install command, or returns "" when the command has another shape.
func PackageIDFromCommand(command string) string {
	if m := wingetIDPattern.FindStringSubmatch(command); m != nil {
		return strings.Trim(m[1], `"`)
	}
	if m := chocoPattern.FindStringSubmatch(strings.TrimSpace(command)); m != nil {
		return m[1]
	}
	return ""
}

func (e *Executor) writeInstallLog(result Result) {
	if e.opts.LogConfig == nil || !e.opts.LogConfig.EnableFile {
		return
	}
	logger, err := logs.CreateInstallLogger(e.opts.LogConfig, result.PackageID)
	if err != nil {
		e.logger.Warn("Failed to create install logger", zap.Error(err))
		return
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Install finished",
		zap.String("command", result.Command),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration))
	for _, line := range strings.Split(strings.TrimRight(result.Output, "\r\n"), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			logger.Info(line)
		}
	}
}

func (e *Executor) record(result *Result) {
	if e.opts.Recorder != nil {
		e.opts.Recorder.RecordInstall(string(result.Outcome))
	}

	if e.opts.History != nil {
		record := &storage.HistoryRecord{
			Kind:      storage.KindInstall,
			Command:   result.Command,
			PackageID: result.PackageID,
			Status:    string(result.Outcome),
			Detail:    result.Error,
		}
		if err := e.opts.History.Append(record); err != nil {
			e.logger.Warn("Failed to record install history", zap.Error(err))
		} else {
			result.HistoryID = record.ID
		}
	}

	if e.opts.Notifier != nil {
		title, message := notification(*result)
		if err := e.opts.Notifier.Notify(title, message); err != nil {
			e.logger.Debug("Desktop notification failed", zap.Error(err))
		}
	}
}

func notification(result Result) (string, string) {
	name := result.PackageID
	if name == "" {
		name = "package"
	}
	switch result.Outcome {
	case OutcomeSuccess:
		return "Install complete", fmt.Sprintf("%s was installed", name)
	case OutcomeNeedsElevation:
		return "Administrator rights required", fmt.Sprintf("Run the install of %s from an elevated shell", name)
	default:
		return "Install failed", fmt.Sprintf("%s could not be installed (exit code %d)", name, result.ExitCode)
	}
}
