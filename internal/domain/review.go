package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRemoteName is used when a RepositoryTarget does not name a remote.
const DefaultRemoteName = "origin"

// RepositoryTarget identifies a remote repository and the local working
// copy that mirrors it.
type RepositoryTarget struct {
	RemoteURL  string
	LocalPath  string
	RemoteName string
}

// Remote returns the configured remote name, defaulting to "origin".
func (t RepositoryTarget) Remote() string {
	if t.RemoteName == "" {
		return DefaultRemoteName
	}
	return t.RemoteName
}

// TransportCredentials describes how git subprocesses authenticate
// against the remote. Credentials are rendered into an environment
// overlay passed to each subprocess; the ambient process environment is
// never mutated, so instances with different credentials can coexist.
type TransportCredentials struct {
	SSHKeyPath       string
	SkipHostKeyCheck bool
}

// SSHCommand renders the GIT_SSH_COMMAND value for these credentials.
// Returns an empty string when no key path is configured.
func (c TransportCredentials) SSHCommand() string {
	if c.SSHKeyPath == "" {
		return ""
	}
	keyPath := expandHome(c.SSHKeyPath)
	if abs, err := filepath.Abs(keyPath); err == nil {
		keyPath = abs
	}
	cmd := fmt.Sprintf("ssh -i %q", filepath.ToSlash(keyPath))
	if c.SkipHostKeyCheck {
		cmd += " -o StrictHostKeyChecking=no"
	}
	return cmd
}

// EnvOverlay returns the environment entries to layer on top of the
// inherited environment for git subprocess invocations.
func (c TransportCredentials) EnvOverlay() []string {
	sshCmd := c.SSHCommand()
	if sshCmd == "" {
		return nil
	}
	return []string{"GIT_SSH_COMMAND=" + sshCmd}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// DiffRequest names the two branches to compare on a remote.
type DiffRequest struct {
	BaseBranch    string
	FeatureBranch string
}

// DiffResult carries the unified diff text produced by comparing the
// merge base of the two branches against the feature tip.
type DiffResult struct {
	UnifiedText string
}

// IsEmpty reports whether the diff contains no textual changes. An
// empty diff is a valid outcome meaning there is nothing to review.
func (d DiffResult) IsEmpty() bool {
	return strings.TrimSpace(d.UnifiedText) == ""
}

// AIInvocation is a single request to the generative AI service.
type AIInvocation struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// ReviewMode selects which prompt template drives the review.
type ReviewMode string

const (
	// ModeDetail focuses the review on code quality.
	ModeDetail ReviewMode = "detail"
	// ModeRelease focuses the review on production release readiness.
	ModeRelease ReviewMode = "release"
)

// ParseReviewMode validates a mode string.
func ParseReviewMode(s string) (ReviewMode, error) {
	switch ReviewMode(s) {
	case ModeDetail, ModeRelease:
		return ReviewMode(s), nil
	default:
		return "", &ConfigurationError{Reason: fmt.Sprintf("unknown review mode %q (expected %q or %q)", s, ModeDetail, ModeRelease)}
	}
}

// ConfigurationError indicates invalid user-supplied configuration,
// such as an unknown review mode or a malformed prompt template.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}
