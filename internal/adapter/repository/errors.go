package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMergeBase indicates the two branches share no common ancestor
// commit, so a divergence diff cannot be computed.
var ErrNoMergeBase = errors.New("no common ancestor between branches")

// RepositoryError wraps clone, fetch, and other git process failures.
// These are permanent at this layer; retry is the AI caller's concern.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// BranchNotFoundError reports remote-tracking refs that do not resolve.
// All missing refs are collected before failing, so a caller sees every
// missing branch at once.
type BranchNotFoundError struct {
	Refs []string
}

func (e *BranchNotFoundError) Error() string {
	return "branch not found: " + strings.Join(e.Refs, ", ")
}

// opError builds a RepositoryError from a failed git invocation,
// preferring stderr as the detail.
func opError(op string, stderr string, err error) *RepositoryError {
	if err == nil {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = "exited with a non-zero status"
		}
		err = errors.New(detail)
	}
	return &RepositoryError{Op: op, Err: err}
}
