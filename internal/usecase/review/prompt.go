package review

import (
	"strings"
	"text/template"

	"github.com/prototypus/git-ai-reviewer/internal/domain"
)

// promptData is the substitution context for prompt templates. The
// template contract is a single named placeholder for the diff text.
type promptData struct {
	CodeDiff string
}

// RenderPrompt substitutes the diff text into the template. A template
// that fails to parse, fails to execute, or never uses the CodeDiff
// placeholder is a configuration error.
func RenderPrompt(templateText, diffText string) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(templateText)
	if err != nil {
		return "", &domain.ConfigurationError{Reason: "malformed prompt template: " + err.Error()}
	}

	var builder strings.Builder
	if err := tmpl.Execute(&builder, promptData{CodeDiff: diffText}); err != nil {
		return "", &domain.ConfigurationError{Reason: "prompt template execution failed: " + err.Error()}
	}

	rendered := builder.String()
	if !strings.Contains(rendered, diffText) {
		return "", &domain.ConfigurationError{Reason: "prompt template does not use the CodeDiff placeholder"}
	}
	return rendered, nil
}
