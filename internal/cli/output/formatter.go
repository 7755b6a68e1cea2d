// Package output renders CLI results as a table, JSON or YAML, and turns
// errors into structured, machine-readable failures.
package output

import (
	"fmt"
	"os"
	"strings"
)

// EnvOutputFormat selects the default output format when no flag is given.
const EnvOutputFormat = "SOFTFINDER_OUTPUT"

// OutputFormatter formats structured data for CLI output.
type OutputFormatter interface {
	// Format converts a struct, slice or map to output.
	Format(data interface{}) (string, error)

	// FormatError converts a structured error to output.
	FormatError(err StructuredError) (string, error)

	// FormatTable formats rows under headers.
	FormatTable(headers []string, rows [][]string) (string, error)
}

// NewFormatter creates a formatter for table, json or yaml (case-insensitive).
func NewFormatter(format string) (OutputFormatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONFormatter{Indent: true}, nil
	case "yaml":
		return &YAMLFormatter{}, nil
	case "table", "":
		return &TableFormatter{NoColor: os.Getenv("NO_COLOR") != ""}, nil
	default:
		return nil, NewStructuredError(ErrCodeInvalidOutputFormat,
			fmt.Sprintf("unknown output format: %s", format)).
			WithGuidance("valid formats are table, json and yaml")
	}
}

// ResolveFormat picks the output format.
// Priority: --json > -o/--output > SOFTFINDER_OUTPUT > table.
func ResolveFormat(outputFlag string, jsonFlag bool) string {
	if jsonFlag {
		return "json"
	}
	if outputFlag != "" {
		return outputFlag
	}
	if envFormat := os.Getenv(EnvOutputFormat); envFormat != "" {
		return envFormat
	}
	return "table"
}

// tableObjects turns rows into header-keyed maps for the structured formats.
func tableObjects(headers []string, rows [][]string) []map[string]string {
	result := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				obj[header] = row[i]
			} else {
				obj[header] = ""
			}
		}
		result = append(result, obj)
	}
	return result
}
