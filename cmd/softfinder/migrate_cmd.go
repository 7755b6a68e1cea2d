package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/softfinder/softfinder-go/internal/contracts"
	"github.com/softfinder/softfinder-go/internal/migrate"
)

var exportFile string

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the installed applications to a migration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend, p *printer) error {
				doc, err := b.Export(ctx)
				if err != nil {
					return err
				}
				if exportFile == "" || exportFile == "-" {
					return migrate.WriteDocument(p.out, doc)
				}
				if err := writeDocumentFile(exportFile, doc); err != nil {
					return err
				}
				p.note("exported %d apps to %s", doc.TotalApps, exportFile)
				if !p.table {
					return p.print(map[string]interface{}{"file": exportFile, "totalApps": doc.TotalApps}, nil, nil)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&exportFile, "file", "f", "", "Write the document to this file instead of stdout")
	return cmd
}

func writeDocumentFile(path string, doc *migrate.Document) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := migrate.WriteDocument(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Install every application listed in a migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocumentFile(cmd, args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd, func(ctx context.Context, b backend, p *printer) error {
				resp, importErr := b.Import(ctx, doc)
				if resp == nil {
					return importErr
				}
				if err := p.print(resp, []string{"name", "id", "outcome", "error"}, importRows(resp)); err != nil {
					return err
				}
				p.note("\n%s: %d installed, %d failed, %d need elevation (of %d)",
					resp.Status, len(resp.Installed), len(resp.Failed), len(resp.NeedsElevation), resp.Total)
				if importErr != nil {
					return importErr
				}
				if len(resp.NeedsElevation) > 0 && len(resp.Failed) == 0 {
					return &installError{message: "some apps need administrator rights", needsElevation: true}
				}
				if len(resp.Failed) > 0 {
					return &installError{message: fmt.Sprintf("%d of %d apps failed to install", len(resp.Failed), resp.Total)}
				}
				return nil
			})
		},
	}
}

// readDocumentFile reads a migration document from path, or stdin for "-".
func readDocumentFile(cmd *cobra.Command, path string) (*migrate.Document, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		r = f
	}
	return migrate.ReadDocument(r)
}

func importRows(resp *contracts.ImportResponse) [][]string {
	var rows [][]string
	for _, group := range [][]contracts.ImportAppResult{resp.Installed, resp.NeedsElevation, resp.Failed} {
		for _, app := range group {
			rows = append(rows, []string{app.Name, app.PackageID, app.Outcome, app.Error})
		}
	}
	return rows
}
