package review

import (
	"context"
	"errors"
	"time"

	llmhttp "github.com/prototypus/git-ai-reviewer/internal/adapter/llm/http"
	"github.com/prototypus/git-ai-reviewer/internal/adapter/repository"
	"github.com/prototypus/git-ai-reviewer/internal/domain"
)

// Synchronizer reconciles the local working copy with the remote.
type Synchronizer interface {
	Reconcile(ctx context.Context, target domain.RepositoryTarget) error
	Cleanup(ctx context.Context, target domain.RepositoryTarget, baseBranch string) error
}

// DiffComputer produces the divergence diff between two branches.
type DiffComputer interface {
	ComputeDiff(ctx context.Context, target domain.RepositoryTarget, req domain.DiffRequest) (domain.DiffResult, error)
}

// AICaller submits a prompt to the AI service and returns review text.
type AICaller interface {
	Generate(ctx context.Context, inv domain.AIInvocation) (string, error)
}

// RunRecord describes one completed review run for the history store.
type RunRecord struct {
	Timestamp     time.Time
	RemoteURL     string
	BaseBranch    string
	FeatureBranch string
	Mode          domain.ReviewMode
	Model         string
	Success       bool
	Message       string
}

// Store persists run history. Optional; failures never fail a review.
type Store interface {
	RecordRun(ctx context.Context, record RunRecord) error
}

// Report describes a review artifact to persist.
type Report struct {
	Repository    string
	FeatureBranch string
	Mode          domain.ReviewMode
	Model         string
	ReviewText    string
}

// ReportWriter persists review artifacts. Optional.
type ReportWriter interface {
	Write(ctx context.Context, report Report) (string, error)
}

// Logger abstracts structured logging for the orchestrator.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Request carries everything one review run needs.
type Request struct {
	Target          domain.RepositoryTarget
	Diff            domain.DiffRequest
	Mode            domain.ReviewMode
	Template        string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Result is the uniform outcome of a review run. No error crosses this
// boundary; every failure mode becomes a human-readable message.
type Result struct {
	Success bool
	Message string
}

// NoChangesMessage is returned when the two branches carry no textual
// differences and the AI call is skipped.
const NoChangesMessage = "no changes to review between the branches"

// Deps captures the collaborators for the orchestrator. Store, Reports,
// and Logger may be nil.
type Deps struct {
	Synchronizer Synchronizer
	DiffComputer DiffComputer
	AICaller     AICaller
	Store        Store
	Reports      ReportWriter
	Logger       Logger
}

// Orchestrator sequences reconcile, diff extraction, template
// substitution, and the AI call into a single linear pipeline.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator constructs the review orchestrator.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Run executes a full review. The returned Result is (true, review
// text) on success, (true, NoChangesMessage) for an empty diff, and
// (false, message) for every failure mode.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	if err := o.deps.Synchronizer.Reconcile(ctx, req.Target); err != nil {
		return o.failure(ctx, req, err)
	}

	diff, err := o.deps.DiffComputer.ComputeDiff(ctx, req.Target, req.Diff)
	if err != nil {
		return o.failure(ctx, req, err)
	}

	if diff.IsEmpty() {
		o.logInfo(ctx, "diff is empty, skipping AI review", map[string]interface{}{
			"base":    req.Diff.BaseBranch,
			"feature": req.Diff.FeatureBranch,
		})
		return o.success(ctx, req, NoChangesMessage, false)
	}

	prompt, err := RenderPrompt(req.Template, diff.UnifiedText)
	if err != nil {
		return o.failure(ctx, req, err)
	}

	text, err := o.deps.AICaller.Generate(ctx, domain.AIInvocation{
		Prompt:          prompt,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	})
	if err != nil {
		return o.failure(ctx, req, err)
	}

	return o.success(ctx, req, text, true)
}

// success runs the post-review hygiene and bookkeeping steps. All of
// them are best-effort: their failure must never overturn a review that
// already succeeded.
func (o *Orchestrator) success(ctx context.Context, req Request, message string, writeReport bool) Result {
	if err := o.deps.Synchronizer.Cleanup(ctx, req.Target, req.Diff.BaseBranch); err != nil {
		o.logWarning(ctx, "post-review cleanup failed", map[string]interface{}{"error": err.Error()})
	}

	if writeReport && o.deps.Reports != nil {
		if _, err := o.deps.Reports.Write(ctx, Report{
			Repository:    req.Target.RemoteURL,
			FeatureBranch: req.Diff.FeatureBranch,
			Mode:          req.Mode,
			Model:         req.Model,
			ReviewText:    message,
		}); err != nil {
			o.logWarning(ctx, "report write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	o.record(ctx, req, true, message)
	return Result{Success: true, Message: message}
}

func (o *Orchestrator) failure(ctx context.Context, req Request, err error) Result {
	message := humanizeError(err)
	o.logWarning(ctx, "review failed", map[string]interface{}{"error": err.Error()})
	o.record(ctx, req, false, message)
	return Result{Success: false, Message: message}
}

func (o *Orchestrator) record(ctx context.Context, req Request, success bool, message string) {
	if o.deps.Store == nil {
		return
	}
	err := o.deps.Store.RecordRun(ctx, RunRecord{
		Timestamp:     time.Now(),
		RemoteURL:     req.Target.RemoteURL,
		BaseBranch:    req.Diff.BaseBranch,
		FeatureBranch: req.Diff.FeatureBranch,
		Mode:          req.Mode,
		Model:         req.Model,
		Success:       success,
		Message:       message,
	})
	if err != nil {
		o.logWarning(ctx, "run history write failed", map[string]interface{}{"error": err.Error()})
	}
}

// humanizeError converts each typed failure into a message suitable for
// the end user. Raw error chains never leave the orchestrator.
func humanizeError(err error) string {
	var branchErr *repository.BranchNotFoundError
	if errors.As(err, &branchErr) {
		return branchErr.Error()
	}

	if errors.Is(err, repository.ErrNoMergeBase) {
		return "the branches share no common history: " + err.Error()
	}

	var repoErr *repository.RepositoryError
	if errors.As(err, &repoErr) {
		return "git operation failed: " + repoErr.Error()
	}

	var confErr *domain.ConfigurationError
	if errors.As(err, &confErr) {
		return confErr.Error()
	}

	var retriesErr *llmhttp.MaxRetriesError
	if errors.As(err, &retriesErr) {
		return "the AI service kept failing: " + retriesErr.Error()
	}

	var aiErr *llmhttp.Error
	if errors.As(err, &aiErr) {
		if aiErr.Type == llmhttp.ErrTypeContentFiltered {
			return "the AI service blocked this review by content filtering: " + aiErr.Message
		}
		return "AI call failed: " + aiErr.Error()
	}

	return err.Error()
}

func (o *Orchestrator) logInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogInfo(ctx, message, fields)
	}
}

func (o *Orchestrator) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogWarning(ctx, message, fields)
	}
}
