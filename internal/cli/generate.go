package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfqaflow/internal/config"
	"github.com/Lllllllleong/pdfqaflow/internal/extract"
	"github.com/Lllllllleong/pdfqaflow/internal/gcp"
	"github.com/Lllllllleong/pdfqaflow/internal/services"
)

func newGenerateCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate QA pairs for every PDF in a directory",
		Long: `Generate extracts each PDF in --pdf-dir and writes one artifact per document
under {output-dir}/{mode}/. In pro mode questions are generated first and each
answer is requested separately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, cmd, cfg, nil)
		},
	}

	f := cmd.Flags()
	f.String("mode", "normal", "Generation mode (normal, pro)")
	f.IntP("num-qa", "n", 10, "Pairs to request per document")
	f.IntP("max-workers", "w", 20, "Documents processed concurrently")
	f.Int("answer-workers", 10, "Concurrent answer calls per document in pro mode")
	f.Int("retries", 3, "Attempts per model call")
	f.Duration("retry-delay", 2*time.Second, "Fixed delay between attempts")
	f.String("pdf-dir", "pdf_files", "Directory containing input PDFs")
	f.String("output-dir", "output", "Directory artifacts are written to")
	f.String("extractor", extract.NamePDF, "Text extractor (pdf, pdftotext)")
	f.Bool("clean-answers", false, "Strip conversational lead-ins from pro-mode answers")
	f.String("backend", gcp.BackendOpenAI, "Model backend (openai, gemini, vertex)")
	f.String("model", "deepseek-chat", "Model name")
	f.String("base-url", "", "OpenAI-compatible API base URL")
	f.Float32("temperature", 0.7, "Sampling temperature")
	return cmd
}

// runGenerate wires the pipeline from cfg and runs it over the configured
// directory. model may be injected; when nil it is built from cfg.
func runGenerate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, model services.ModelClient) error {
	logger := slog.Default()

	files, err := extract.DiscoverPDFs(cfg.Run.PDFDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("No PDF files found.", "dir", cfg.Run.PDFDir)
		return nil
	}

	extractor, err := extract.New(cfg.Run.Extractor)
	if err != nil {
		return err
	}
	if model == nil {
		client, err := gcp.NewModelClient(ctx, cfg.ModelOptions())
		if err != nil {
			return fmt.Errorf("failed to create model client: %w", err)
		}
		defer client.Close()
		model = client
	}

	run := cfg.RunConfig()
	generator := services.NewGenerator(model, services.GeneratorConfig{
		AnswerWorkers: run.AnswerWorkers,
		CleanAnswers:  cfg.Run.CleanAnswers,
	}, logger)
	sink := services.NewLocalSink(cfg.Run.OutputDir)
	orch := services.NewOrchestrator(extractor, generator, sink, run, logger)

	FormatRunHeader(cmd.OutOrStdout(), run, cfg.LLM.Backend, len(files))
	summary, err := orch.Run(ctx, files)
	if err != nil {
		return err
	}
	FormatRunSummary(cmd.OutOrStdout(), summary)
	return nil
}
