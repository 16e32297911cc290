package repository

import (
	"context"
	"fmt"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/prototypus/git-ai-reviewer/internal/adapter/gitexec"
	"github.com/prototypus/git-ai-reviewer/internal/domain"
)

// unifiedContextLines is deliberately wide so the AI reviewer sees
// enough surrounding code per hunk.
const unifiedContextLines = 10

// Extractor computes the diff introduced by a feature branch since it
// diverged from a base branch, against freshly fetched remote state.
type Extractor struct {
	runner *gitexec.Runner
}

// NewExtractor constructs an Extractor that invokes git through the
// provided runner.
func NewExtractor(runner *gitexec.Runner) *Extractor {
	return &Extractor{runner: runner}
}

// ComputeDiff fetches the remote and diffs the merge base of the two
// branches against the feature tip. An empty result is valid and means
// there is nothing to review.
func (e *Extractor) ComputeDiff(ctx context.Context, target domain.RepositoryTarget, req domain.DiffRequest) (domain.DiffResult, error) {
	remote := target.Remote()

	result, err := e.runner.Run(ctx, target.LocalPath, "fetch", remote, "--prune")
	if err != nil {
		return domain.DiffResult{}, &RepositoryError{Op: "fetch", Err: err}
	}
	if !result.Ok() {
		return domain.DiffResult{}, opError("fetch", result.Stderr, nil)
	}

	baseRef := plumbing.NewRemoteReferenceName(remote, req.BaseBranch)
	featureRef := plumbing.NewRemoteReferenceName(remote, req.FeatureBranch)
	if err := e.verifyRefs(target, remote, req, baseRef, featureRef); err != nil {
		return domain.DiffResult{}, err
	}

	mergeBase, err := e.mergeBase(ctx, target.LocalPath, baseRef.String(), featureRef.String())
	if err != nil {
		return domain.DiffResult{}, err
	}

	result, err = e.runner.Run(ctx, target.LocalPath,
		"diff", mergeBase, featureRef.String(), fmt.Sprintf("--unified=%d", unifiedContextLines))
	if err != nil {
		return domain.DiffResult{}, &RepositoryError{Op: "diff", Err: err}
	}
	if !result.Ok() {
		return domain.DiffResult{}, opError("diff", result.Stderr, nil)
	}

	return domain.DiffResult{UnifiedText: result.Stdout}, nil
}

// verifyRefs checks that both remote-tracking refs resolve to a commit.
// Both are checked before failing so the caller sees every missing
// branch at once.
func (e *Extractor) verifyRefs(target domain.RepositoryTarget, remote string, req domain.DiffRequest, baseRef, featureRef plumbing.ReferenceName) error {
	repo, err := goGit.PlainOpen(target.LocalPath)
	if err != nil {
		return &RepositoryError{Op: "open", Err: err}
	}

	var missing []string
	if _, err := repo.Reference(baseRef, true); err != nil {
		missing = append(missing, fmt.Sprintf("%s/%s (%s)", remote, req.BaseBranch, baseRef))
	}
	if _, err := repo.Reference(featureRef, true); err != nil {
		missing = append(missing, fmt.Sprintf("%s/%s (%s)", remote, req.FeatureBranch, featureRef))
	}
	if len(missing) > 0 {
		return &BranchNotFoundError{Refs: missing}
	}
	return nil
}

// mergeBase resolves the most recent common ancestor of the two refs.
// With multiple candidate merge bases git returns one best ancestor,
// keeping the diff deterministic, which is why the merge base is
// computed explicitly rather than relying on three-dot diff syntax.
func (e *Extractor) mergeBase(ctx context.Context, dir, baseRef, featureRef string) (string, error) {
	result, err := e.runner.Run(ctx, dir, "merge-base", baseRef, featureRef)
	if err != nil {
		return "", &RepositoryError{Op: "merge-base", Err: err}
	}
	sha := strings.TrimSpace(result.Stdout)
	if !result.Ok() || sha == "" {
		return "", fmt.Errorf("%w: %s and %s", ErrNoMergeBase, baseRef, featureRef)
	}
	return sha, nil
}
