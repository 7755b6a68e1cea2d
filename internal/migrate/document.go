package migrate

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/softfinder/softfinder-go/internal/packages"
)

// Document is the export/import file exchanged between machines.
type Document struct {
	ExportedAt    time.Time `json:"exportedAt"`
	ComputerName  string    `json:"computerName"`
	Apps          []App     `json:"apps"`
	WingetCommand string    `json:"wingetCommand"`
	TotalApps     int       `json:"totalApps"`
}

// Validate checks that the document lists at least one app and that every app has an id.
func (d *Document) Validate() error {
	if d == nil || len(d.Apps) == 0 {
		return &packages.ValidationError{Field: "apps", Message: "must contain at least one app"}
	}
	for i, app := range d.Apps {
		if strings.TrimSpace(app.PackageID) == "" {
			return &packages.ValidationError{
				Field:   fmt.Sprintf("apps[%d].packageId", i),
				Message: "must not be empty",
			}
		}
	}
	return nil
}

// WriteDocument writes doc as indented JSON.
func WriteDocument(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export document: %w", err)
	}
	return nil
}

// ReadDocument decodes and validates a document.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &packages.ValidationError{Field: "document", Message: "invalid JSON: " + err.Error()}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// joinCommands builds the one-line script that installs every app.
func joinCommands(apps []App, command packages.CommandFunc) string {
	parts := make([]string, 0, len(apps))
	for _, app := range apps {
		if cmd := command(app.PackageID, ""); cmd != "" {
			parts = append(parts, cmd)
		}
	}
	return strings.Join(parts, " ; ")
}
