package logs

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/softfinder/softfinder-go/internal/config"
)

// Log level constants
const (
	LogLevelTrace = "trace"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	defaultTailLines = 50
	maxTailLines     = 500
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DefaultLogConfig returns default logging configuration
func DefaultLogConfig() *config.LogConfig {
	return &config.LogConfig{
		Level:         LogLevelInfo,
		EnableFile:    false,
		EnableConsole: true,
		Filename:      "main.log",
		MaxSize:       10, // 10MB
		MaxBackups:    5,
		MaxAge:        30, // days
		Compress:      true,
		JSONFormat:    false,
	}
}

// ParseLevel maps a configured level name to a zap level. Unknown names fall back to info.
func ParseLevel(name string) zapcore.Level {
	switch name {
	case LogLevelTrace, LogLevelDebug:
		return zap.DebugLevel
	case LogLevelInfo:
		return zap.InfoLevel
	case LogLevelWarn:
		return zap.WarnLevel
	case LogLevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// SetupLogger creates a logger with file and console outputs based on configuration
func SetupLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultLogConfig()
	}
	level := ParseLevel(cfg.Level)

	var cores []zapcore.Core

	if cfg.EnableConsole {
		cores = append(cores, zapcore.NewCore(getConsoleEncoder(), zapcore.AddSync(os.Stderr), level))
	}

	if cfg.EnableFile {
		fileCore, err := createFileCore(cfg, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create file core: %w", err)
		}
		cores = append(cores, fileCore)
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("no log outputs configured")
	}

	core := NewURLSanitizer(zapcore.NewTee(cores...))
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

// SetupCommandLogger creates a logger for console commands.
// The serve command logs at INFO by default, one-shot commands at WARN so their
// stdout stays clean for table/json output.
func SetupCommandLogger(serverCommand bool, logLevel string, logToFile bool, logDir string) (*zap.Logger, error) {
	level := LogLevelWarn
	if serverCommand {
		level = LogLevelInfo
	}
	if logLevel != "" {
		level = logLevel
	}

	cfg := DefaultLogConfig()
	cfg.Level = level
	cfg.EnableFile = logToFile
	cfg.LogDir = logDir

	return SetupLogger(cfg)
}

// CreateInstallLogger creates a file-only logger that captures the output of one install run.
// Each package gets its own rotated file so a failed install can be inspected afterwards.
func CreateInstallLogger(cfg *config.LogConfig, packageID string) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultLogConfig()
	}

	installCfg := *cfg
	installCfg.Filename = InstallLogFilename(packageID)
	installCfg.EnableConsole = false

	fileCore, err := createFileCore(&installCfg, ParseLevel(installCfg.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to create file core for install of %s: %w", packageID, err)
	}

	logger := zap.New(NewURLSanitizer(fileCore), zap.AddCaller(), zap.AddCallerSkip(1))
	return logger.With(zap.String("package", packageID)), nil
}

// CreateHTTPLogger creates the access logger for the HTTP API. Requests go to
// http.log when file logging is enabled and are dropped otherwise.
func CreateHTTPLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	if cfg == nil || !cfg.EnableFile {
		return zap.NewNop(), nil
	}

	httpCfg := *cfg
	httpCfg.Filename = "http.log"

	fileCore, err := createFileCore(&httpCfg, zapcore.InfoLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create file core for http log: %w", err)
	}
	return zap.New(NewURLSanitizer(fileCore)), nil
}

// InstallLogFilename returns the log file name used for installs of packageID.
func InstallLogFilename(packageID string) string {
	safe := unsafeFileChars.ReplaceAllString(packageID, "_")
	if safe == "" {
		safe = "unknown"
	}
	return fmt.Sprintf("install-%s.log", safe)
}

// ReadInstallLogTail reads the last N lines of the install log for packageID.
// A missing log file yields an empty slice.
func ReadInstallLogTail(cfg *config.LogConfig, packageID string, lines int) ([]string, error) {
	if lines <= 0 {
		lines = defaultTailLines
	}
	if lines > maxTailLines {
		lines = maxTailLines
	}

	logDir := ""
	if cfg != nil {
		logDir = cfg.LogDir
	}
	logFilePath, err := GetLogFilePathWithDir(logDir, InstallLogFilename(packageID))
	if err != nil {
		return nil, fmt.Errorf("failed to get log file path for %s: %w", packageID, err)
	}

	file, err := os.Open(logFilePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log file for %s: %w", packageID, err)
	}
	defer file.Close()

	var allLines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		allLines = append(allLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file for %s: %w", packageID, err)
	}

	if len(allLines) <= lines {
		return allLines, nil
	}
	return allLines[len(allLines)-lines:], nil
}

func createFileCore(cfg *config.LogConfig, level zapcore.Level) (zapcore.Core, error) {
	logFilePath, err := GetLogFilePathWithDir(cfg.LogDir, cfg.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to get log file path: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	encoder := getFileEncoder()
	if cfg.JSONFormat {
		encoder = getJSONEncoder()
	}

	return zapcore.NewCore(encoder, zapcore.AddSync(rotator), level), nil
}

func getConsoleEncoder() zapcore.Encoder {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// getFileEncoder returns a file-friendly encoder (structured but readable)
func getFileEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	encoderConfig.ConsoleSeparator = " | "
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getJSONEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// LoggerInfo describes where and how the process is logging
type LoggerInfo struct {
	LogDir        string `json:"log_dir"`
	LogFile       string `json:"log_file"`
	Level         string `json:"level"`
	EnableFile    bool   `json:"enable_file"`
	EnableConsole bool   `json:"enable_console"`
	JSONFormat    bool   `json:"json_format"`
}

// GetLoggerInfo returns information about the logger configuration
func GetLoggerInfo(cfg *config.LogConfig) (*LoggerInfo, error) {
	if cfg == nil {
		cfg = DefaultLogConfig()
	}

	logFile, err := GetLogFilePathWithDir(cfg.LogDir, cfg.Filename)
	if err != nil {
		return nil, err
	}

	return &LoggerInfo{
		LogDir:        filepathDir(logFile),
		LogFile:       logFile,
		Level:         cfg.Level,
		EnableFile:    cfg.EnableFile,
		EnableConsole: cfg.EnableConsole,
		JSONFormat:    cfg.JSONFormat,
	}, nil
}
