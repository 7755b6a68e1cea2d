package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyKind  string
	historyLimit int
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent installs, exports and imports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend, p *printer) error {
				resp, err := b.History(ctx, historyKind, historyLimit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, e := range resp.Entries {
					rows = append(rows, []string{
						e.Created.Local().Format(time.DateTime), e.Kind, e.Status, e.PackageID, e.Command,
					})
				}
				return p.print(resp, []string{"time", "kind", "status", "package", "command"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&historyKind, "kind", "", "Only show one kind (install, export, import)")
	cmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum entries (default 50, max 1000)")
	return cmd
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the search caches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached search result and official-site lookup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend, p *printer) error {
				resp, err := b.ClearCache(ctx)
				if err != nil {
					return err
				}
				if p.table {
					p.note("caches cleared")
					return nil
				}
				return p.print(resp, nil, nil)
			})
		},
	})
	return cmd
}
