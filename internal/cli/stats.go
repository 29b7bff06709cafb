package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfqaflow/internal/services"
)

// artifactDir returns the directory argument, falling back to output_dir.
func artifactDir(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

func newStatsCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [dir]",
		Short: "Report question and answer length statistics for generated artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configFile)
			if err != nil {
				return err
			}
			dir := artifactDir(args, cfg.Run.OutputDir)
			st, err := services.CollectStatistics(dir, slog.Default())
			if err != nil {
				return err
			}
			if st.Artifacts == 0 {
				return fmt.Errorf("no artifacts found in %s", dir)
			}
			FormatStatistics(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().String("output-dir", "output", "Directory artifacts were written to")
	return cmd
}

func newCleanCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [dir]",
		Short: "Strip boilerplate lead-ins from answers in existing artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configFile)
			if err != nil {
				return err
			}
			dir := artifactDir(args, cfg.Run.OutputDir)
			n, err := services.CleanArtifacts(cmd.Context(), dir, slog.Default())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d artifact(s) rewritten in %s\n", successStyle.Render("✓"), n, dir)
			return nil
		},
	}
	cmd.Flags().String("output-dir", "output", "Directory artifacts were written to")
	return cmd
}
