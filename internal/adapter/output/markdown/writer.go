package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prototypus/git-ai-reviewer/internal/usecase/review"
)

type clock func() string

// Writer renders review results into Markdown files.
type Writer struct {
	outputDir string
	now       clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
func NewWriter(outputDir string, now clock) *Writer {
	return &Writer{outputDir: outputDir, now: now}
}

// Write persists a Markdown artifact to disk and returns its path.
func (w *Writer) Write(ctx context.Context, report review.Report) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s_%s.md",
		sanitise(repositoryName(report.Repository)),
		sanitise(report.FeatureBranch),
		sanitise(string(report.Mode)),
		w.now(),
	)
	path := filepath.Join(w.outputDir, filename)

	if err := os.WriteFile(path, []byte(buildContent(report)), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}

func buildContent(report review.Report) string {
	caser := cases.Title(language.English)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("# %s Review\n\n", caser.String(string(report.Mode))))
	builder.WriteString(fmt.Sprintf("- Repository: %s\n", report.Repository))
	builder.WriteString(fmt.Sprintf("- Branch: %s\n", report.FeatureBranch))
	builder.WriteString(fmt.Sprintf("- Model: %s\n\n", report.Model))
	builder.WriteString(report.ReviewText)
	builder.WriteString("\n")
	return builder.String()
}

// repositoryName extracts a short name from a clone URL.
func repositoryName(remoteURL string) string {
	name := strings.TrimRight(remoteURL, "/")
	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, "/", "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}
