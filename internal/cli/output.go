package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/services"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// FormatRunHeader renders the settings a run starts with.
func FormatRunHeader(w io.Writer, run services.RunConfig, backend string, fileCount int) {
	content := fmt.Sprintf("%s %s  %s %s/%s\n%s %d  %s %d  %s %d",
		dimStyle.Render("Mode:"), titleStyle.Render(string(run.Mode)),
		dimStyle.Render("Model:"), backend, run.Model,
		dimStyle.Render("Files:"), fileCount,
		dimStyle.Render("Pairs/file:"), run.NumQA,
		dimStyle.Render("Workers:"), run.MaxWorkers,
	)
	fmt.Fprintln(w, boxStyle.Render(content))
}

// FormatRunSummary renders the outcome of a run.
func FormatRunSummary(w io.Writer, s *models.RunSummary) {
	status := successStyle.Render("OK")
	if s.Failed > 0 {
		status = errorStyle.Render(fmt.Sprintf("%d FAILED", s.Failed))
	}
	lines := []string{
		titleStyle.Render("Run Complete") + "  " + status,
		fmt.Sprintf("%s %s", dimStyle.Render("Run:"), s.RunID),
		fmt.Sprintf("%s %d  %s %d  %s %d",
			dimStyle.Render("Submitted:"), s.Submitted,
			dimStyle.Render("Succeeded:"), s.Succeeded,
			dimStyle.Render("Failed:"), s.Failed),
		fmt.Sprintf("%s %d  %s %.1fs",
			dimStyle.Render("Pairs:"), s.TotalPairs,
			dimStyle.Render("Duration:"), s.Duration.Seconds()),
	}
	for _, f := range s.Failures {
		lines = append(lines, errorStyle.Render("✗")+" "+f.Source+dimStyle.Render(" ("+string(f.Stage)+")"))
	}
	if s.ReportPath != "" {
		lines = append(lines, fmt.Sprintf("%s %s", dimStyle.Render("Failure report:"), s.ReportPath))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

// FormatStatistics renders artifact statistics with a simple histogram.
func FormatStatistics(w io.Writer, st *services.Statistics) {
	head := fmt.Sprintf("%s\n%s %d  %s %d  %s %d  %s %d",
		titleStyle.Render("Artifact Statistics"),
		dimStyle.Render("Documents:"), st.Documents,
		dimStyle.Render("Artifacts:"), st.Artifacts,
		dimStyle.Render("Pairs:"), st.TotalPairs,
		dimStyle.Render("Skipped:"), st.Skipped,
	)
	fmt.Fprintln(w, boxStyle.Render(head))
	formatLengths(w, "Question length", st.Questions)
	formatLengths(w, "Answer length", st.Answers)
}

func formatLengths(w io.Writer, title string, ls services.LengthStats) {
	fmt.Fprintln(w, titleStyle.Render(title))
	if ls.Count == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no data"))
		return
	}
	fmt.Fprintf(w, "  %s %d  %s %d  %s %.1f  %s %.1f  %s %d  %s %d\n",
		dimStyle.Render("min"), ls.Min,
		dimStyle.Render("max"), ls.Max,
		dimStyle.Render("mean"), ls.Mean,
		dimStyle.Render("median"), ls.Median,
		dimStyle.Render("p25"), ls.P25,
		dimStyle.Render("p75"), ls.P75,
	)
	for _, b := range ls.Buckets {
		pct := float64(b.Count) / float64(ls.Count) * 100
		bar := strings.Repeat("█", int(pct/2))
		fmt.Fprintf(w, "  %-10s %6d %5.1f%% %s\n", b.Label, b.Count, pct, successStyle.Render(bar))
	}
}
