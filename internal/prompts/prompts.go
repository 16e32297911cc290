// Package prompts carries the embedded review prompt templates, one
// per review mode. Each template contains a single {{.CodeDiff}}
// placeholder that the orchestrator substitutes with the diff text.
package prompts

import (
	"embed"
	"fmt"

	"github.com/prototypus/git-ai-reviewer/internal/domain"
)

//go:embed detail.md release.md
var files embed.FS

// Load returns the template text for the given review mode.
func Load(mode domain.ReviewMode) (string, error) {
	switch mode {
	case domain.ModeDetail, domain.ModeRelease:
	default:
		return "", &domain.ConfigurationError{Reason: fmt.Sprintf("no prompt template for mode %q", mode)}
	}

	content, err := files.ReadFile(string(mode) + ".md")
	if err != nil {
		return "", &domain.ConfigurationError{Reason: fmt.Sprintf("read prompt template for mode %q: %v", mode, err)}
	}
	return string(content), nil
}
