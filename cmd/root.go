package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/logging"
)

// rootCmd represents the base command for the contactstats application
var rootCmd = &cobra.Command{
	Use:   "contactstats",
	Short: "Summarizes how many emails you exchanged with a list of people",
	Long: `contactstats searches your mailbox for messages sent to or received from
each given address and reports the number of emails sent, received and
exchanged together with the first and last contact date.

It can run as:
  - A standalone CLI tool that prints a summary and saves a CSV report (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

var (
	// version will be set by main
	version = "dev"

	configPath string
	debugMode  bool
	logFormat  string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "contactstats version %s\n" .Version}}`)
	rootCmd.SetArgs(defaultArgs(rootCmd, os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// defaultArgs prepends the stats command unless args already name a
// subcommand or ask for help or the version.
func defaultArgs(root *cobra.Command, args []string) []string {
	if len(args) > 0 {
		switch args[0] {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return args
		case "-h", "--help", "--version":
			if len(args) == 1 {
				return args
			}
		}
	}

	if c, _, err := root.Find(args); err == nil && c != root {
		return args
	}
	return append([]string{"stats"}, args...)
}

// newLogger builds the process logger from the persistent flags. Logs go to
// stderr so that stdout carries only command output.
func newLogger() *logging.SlogAdapter {
	logger := logging.New(os.Stderr, logging.Options{Debug: debugMode, Format: logFormat})
	slog.SetDefault(logger)
	return logging.NewSlogAdapter(logger)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")

	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
