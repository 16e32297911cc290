package repository

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	goGit "github.com/go-git/go-git/v5"

	"github.com/prototypus/git-ai-reviewer/internal/adapter/gitexec"
	"github.com/prototypus/git-ai-reviewer/internal/domain"
)

// Synchronizer reconciles a local working copy with a target remote
// URL, cloning, re-cloning, or reusing as needed. All filesystem side
// effects stay inside the target's LocalPath.
type Synchronizer struct {
	runner *gitexec.Runner
}

// NewSynchronizer constructs a Synchronizer that invokes git through
// the provided runner. The runner carries the transport-credential
// environment overlay.
func NewSynchronizer(runner *gitexec.Runner) *Synchronizer {
	return &Synchronizer{runner: runner}
}

// Reconcile ensures the working copy at target.LocalPath mirrors
// target.RemoteURL. Idempotent: a second call with the same target is a
// no-op reuse of the existing clone.
func (s *Synchronizer) Reconcile(ctx context.Context, target domain.RepositoryTarget) error {
	repo, err := goGit.PlainOpen(target.LocalPath)
	if err != nil {
		// Not a working copy, or unreadable; start fresh.
		return s.removeAndClone(ctx, target)
	}

	remote, err := repo.Remote(target.Remote())
	if err != nil || len(remote.Config().URLs) == 0 {
		// A clone without its remote is corrupt for our purposes.
		return s.removeAndClone(ctx, target)
	}

	existing := remote.Config().URLs[0]
	if NormalizeURL(existing) != NormalizeURL(target.RemoteURL) {
		return s.removeAndClone(ctx, target)
	}
	return nil
}

// Cleanup restores the working copy to a pristine state on baseBranch:
// checkout, hard reset to the remote tracking ref, remove untracked
// files, pull. Intended as post-review hygiene; callers log and swallow
// the returned error so it never fails a review that already succeeded.
func (s *Synchronizer) Cleanup(ctx context.Context, target domain.RepositoryTarget, baseBranch string) error {
	remote := target.Remote()
	steps := [][]string{
		{"checkout", baseBranch},
		{"reset", "--hard", fmt.Sprintf("%s/%s", remote, baseBranch)},
		{"clean", "-fd"},
		{"pull", remote, baseBranch},
	}
	for _, args := range steps {
		result, err := s.runner.Run(ctx, target.LocalPath, args...)
		if err != nil {
			return &RepositoryError{Op: args[0], Err: err}
		}
		if !result.Ok() {
			return opError(args[0], result.Stderr, nil)
		}
	}
	return nil
}

// removeAndClone forcibly deletes the existing directory tree and
// clones the target remote into its place.
func (s *Synchronizer) removeAndClone(ctx context.Context, target domain.RepositoryTarget) error {
	// Best-effort removal; a leftover tree surfaces as a clone failure.
	_ = os.RemoveAll(target.LocalPath)

	parent := filepath.Dir(target.LocalPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return &RepositoryError{Op: "clone", Err: err}
	}

	result, err := s.runner.Run(ctx, parent, "clone", target.RemoteURL, filepath.Base(target.LocalPath))
	if err != nil {
		return &RepositoryError{Op: "clone", Err: err}
	}
	if !result.Ok() {
		return opError("clone", result.Stderr, nil)
	}
	return nil
}

// NormalizeURL produces the canonical form used to decide whether an
// existing clone already points at the requested remote. Comparison is
// case-insensitive with trailing slashes stripped; network-transport
// URLs additionally drop embedded userinfo. scp-style SSH URLs
// (git@host:path) have no standard parse and are compared as-is.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimRight(u, "/")
	if !strings.HasPrefix(u, "git@") && strings.Contains(u, "://") {
		if parsed, err := url.Parse(u); err == nil {
			parsed.User = nil
			u = parsed.String()
		}
	}
	return strings.ToLower(u)
}
