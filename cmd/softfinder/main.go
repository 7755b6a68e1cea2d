package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/softfinder/softfinder-go/internal/cli/output"
)

var (
	configFile   string
	dataDir      string
	listen       string
	logLevel     string
	logToFile    bool
	logDir       string
	outputFormat string
	jsonOutput   bool
	standalone   bool

	version = "v0.1.0" // This will be injected by -ldflags during build
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		reportError(rootCmd, err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "softfinder",
		Short:         "Find, install and migrate Windows software across winget, Chocolatey and the web",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory path (default: ~/.softfinder)")
	rootCmd.PersistentFlags().StringVarP(&listen, "listen", "l", "", "HTTP API listen address")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-to-file", true, "Enable logging to file in standard OS location")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Custom log directory path (overrides standard OS location)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Shorthand for --output json")
	rootCmd.PersistentFlags().BoolVar(&standalone, "standalone", false, "Run in-process even when a server is listening")

	rootCmd.AddCommand(
		newServeCommand(),
		newSearchCommand(),
		newCommandCommand(),
		newVersionsCommand(),
		newInstallCommand(),
		newExportCommand(),
		newImportCommand(),
		newHistoryCommand(),
		newCacheCommand(),
	)
	return rootCmd
}

// reportError prints err in the selected output format on stderr.
func reportError(cmd *cobra.Command, err error) {
	formatter, fmtErr := output.NewFormatter(output.ResolveFormat(outputFormat, jsonOutput))
	if fmtErr != nil {
		formatter, _ = output.NewFormatter("table")
	}
	rendered, renderErr := formatter.FormatError(toStructuredError(err))
	if renderErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return
	}
	fmt.Fprint(cmd.ErrOrStderr(), rendered)
}
