package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/softfinder/softfinder-go/internal/installer"
)

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install <command...>",
		Short: "Run an install command and record it in the history",
		Example: `  softfinder install winget install --id VideoLAN.VLC -e
  softfinder install "choco install vlc -y"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")
			return withBackend(cmd, func(ctx context.Context, b backend, p *printer) error {
				resp, err := b.Install(ctx, command)
				if err != nil {
					return err
				}
				duration := (time.Duration(resp.DurationMs) * time.Millisecond).String()
				rows := [][]string{{resp.PackageID, resp.Outcome, fmt.Sprint(resp.ExitCode), duration, resp.HistoryID}}
				if err := p.print(resp, []string{"package", "outcome", "exit code", "duration", "history id"}, rows); err != nil {
					return err
				}

				switch installer.Outcome(resp.Outcome) {
				case installer.OutcomeSuccess:
					return nil
				case installer.OutcomeNeedsElevation:
					return &installError{message: "install needs administrator rights: " + command, needsElevation: true}
				default:
					msg := resp.Error
					if msg == "" {
						msg = fmt.Sprintf("exit code %d", resp.ExitCode)
					}
					return &installError{message: "install failed: " + msg}
				}
			})
		},
	}
}
