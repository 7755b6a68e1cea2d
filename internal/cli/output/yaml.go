package output

import "gopkg.in/yaml.v3"

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// Format marshals data to YAML.
func (f *YAMLFormatter) Format(data interface{}) (string, error) {
	out, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// FormatError marshals a structured error to YAML under an "error" key.
func (f *YAMLFormatter) FormatError(err StructuredError) (string, error) {
	return f.Format(map[string]StructuredError{"error": err})
}

// FormatTable converts tabular data to a YAML sequence of mappings.
func (f *YAMLFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	return f.Format(tableObjects(headers, rows))
}
