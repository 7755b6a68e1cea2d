package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cli/output"
	"github.com/softfinder/softfinder-go/internal/config"
	"github.com/softfinder/softfinder-go/internal/logs"
)

// loadConfig loads the configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
	} else {
		cfg, err = config.Load("")
	}
	if err != nil {
		return nil, &configError{err: err}
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err: fmt.Errorf("invalid configuration: %w", err)}
	}
	return cfg, nil
}

// setupLogger applies the logging flags to cfg and builds the logger. Long-running
// commands log at info by default, one-shot commands at warn.
func setupLogger(cfg *config.Config, serverCommand bool) (*zap.Logger, error) {
	if cfg.Logging == nil {
		cfg.Logging = logs.DefaultLogConfig()
	}
	level := logs.LogLevelWarn
	if serverCommand {
		level = logs.LogLevelInfo
	}
	if logLevel != "" {
		level = logLevel
	}
	cfg.Logging.Level = level
	cfg.Logging.EnableFile = logToFile
	if logDir != "" {
		cfg.Logging.LogDir = logDir
	}

	logger, err := logs.SetupLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return logger, nil
}

// printer renders command results in the selected output format.
type printer struct {
	formatter output.OutputFormatter
	table     bool
	out       io.Writer
}

func newPrinter(cmd *cobra.Command) (*printer, error) {
	format := output.ResolveFormat(outputFormat, jsonOutput)
	formatter, err := output.NewFormatter(format)
	if err != nil {
		return nil, err
	}
	_, isTable := formatter.(*output.TableFormatter)
	return &printer{formatter: formatter, table: isTable, out: cmd.OutOrStdout()}, nil
}

// print writes data as JSON/YAML, or headers and rows as a table.
func (p *printer) print(data interface{}, headers []string, rows [][]string) error {
	var rendered string
	var err error
	if p.table {
		rendered, err = p.formatter.FormatTable(headers, rows)
	} else {
		rendered, err = p.formatter.Format(data)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(p.out, rendered)
	return err
}

// note writes a line that only appears in table output.
func (p *printer) note(format string, args ...interface{}) {
	if p.table {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}
