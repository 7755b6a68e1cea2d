package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/softfinder/softfinder-go/internal/contracts"
	"github.com/softfinder/softfinder-go/internal/packages"
)

var (
	searchPage    int
	searchLimit   int
	searchSources []string
	commandVer    string
)

// withBackend runs fn against a backend built from the global flags and closes it afterwards.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, b backend, p *printer) error) error {
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	return fn(ctx, b, p)
}

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the package sources, falling back to the official site and web-search links",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().IntVar(&searchPage, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&searchLimit, "limit", 0, "Page size (default from config)")
	cmd.Flags().StringSliceVar(&searchSources, "source", nil, "Sources to search (catalog, secondary-repo); repeatable")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	var sources []string
	if cmd.Flags().Changed("source") {
		sources = append([]string{}, searchSources...)
	}

	return withBackend(cmd, func(ctx context.Context, b backend, p *printer) error {
		resp, err := b.Search(ctx, query, searchPage, searchLimit, sources)
		if err != nil {
			return err
		}
		if err := p.print(resp, searchHeaders, searchRows(resp.Records)); err != nil {
			return err
		}
		printSearchNotes(p, resp)
		return nil
	})
}

var searchHeaders = []string{"name", "id", "source", "version", "publisher", "install"}

func searchRows(records []packages.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		install := r.InstallCommand
		if install == "" {
			install = r.OfficialURL
		}
		rows = append(rows, []string{r.Name, r.PackageID, string(r.Source), r.LatestVersion, r.Publisher, install})
	}
	return rows
}

func printSearchNotes(p *printer, resp *contracts.SearchResponse) {
	for _, r := range resp.Records {
		for _, link := range r.SearchLinks {
			p.note("  %s: %s", link.Engine, link.URL)
		}
	}
	for _, d := range resp.Diagnostics {
		p.note("warning: %s unavailable: %s", d.Source, d.Error)
	}
	more := ""
	if resp.HasMore {
		more = fmt.Sprintf(", more with --page %d", resp.Page+1)
	}
	p.note("\npage %d, %d of %d results (%s)%s", resp.Page, len(resp.Records), resp.Total, resp.Status, more)
}

func newCommandCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "command <source> <package-id>",
		Short: "Print the install command for a package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend, p *printer) error {
				resp, err := b.Command(ctx, args[0], args[1], commandVer)
				if err != nil {
					return err
				}
				if p.table {
					_, err = fmt.Fprintln(p.out, resp.Command)
					return err
				}
				return p.print(resp, nil, nil)
			})
		},
	}
	cmd.Flags().StringVar(&commandVer, "version", "", "Pin a specific version")
	return cmd
}

func newVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <source> <package-id>",
		Short: "List the available versions of a package, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend, p *printer) error {
				resp, err := b.Versions(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Versions))
				for _, v := range resp.Versions {
					latest := ""
					if v == resp.Latest {
						latest = "*"
					}
					rows = append(rows, []string{v, latest})
				}
				return p.print(resp, []string{"version", "latest"}, rows)
			})
		},
	}
}
