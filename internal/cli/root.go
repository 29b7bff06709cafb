// Package cli implements the pdfqa command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfqaflow/internal/config"
	"github.com/Lllllllleong/pdfqaflow/internal/logger"
)

// Version is stamped at build time.
var Version = "dev"

// NewRootCmd builds the pdfqa command tree.
func NewRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "pdfqa",
		Short: "Generate question/answer datasets from PDF documents",
		Long: `pdfqa extracts text from a directory of PDFs and asks a language model
for question/answer pairs about each one, writing one JSON artifact per document.

Settings come from flags, PDFQA_* environment variables and an optional config file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newGenerateCmd(&configFile),
		newStatsCmd(&configFile),
		newCleanCmd(&configFile),
	)
	return root
}

// loadConfig reads configuration for cmd and installs the default logger.
func loadConfig(cmd *cobra.Command, configFile string) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if _, err := logger.Setup(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := run(NewRootCmd(), os.Args[1:], os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(root *cobra.Command, args []string, stderr io.Writer) error {
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error:"), err)
	}
	return err
}
