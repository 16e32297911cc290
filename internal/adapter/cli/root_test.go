package cli_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prototypus/git-ai-reviewer/internal/adapter/cli"
	"github.com/prototypus/git-ai-reviewer/internal/domain"
	"github.com/prototypus/git-ai-reviewer/internal/usecase/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReviewer struct {
	result  review.Result
	request review.Request
	calls   int
}

func (f *fakeReviewer) Run(ctx context.Context, req review.Request) review.Result {
	f.calls++
	f.request = req
	return f.result
}

type capture struct {
	reviewer *fakeReviewer
	creds    domain.TransportCredentials
	model    string
	buildErr error
}

func (c *capture) build(creds domain.TransportCredentials, model string) (cli.Reviewer, error) {
	c.creds = creds
	c.model = model
	return c.reviewer, c.buildErr
}

func testDefaults() cli.Defaults {
	return cli.Defaults{
		BaseBranch:      "main",
		Model:           "gemini-2.5-flash",
		Temperature:     0.2,
		MaxOutputTokens: 20480,
		LocalPathRoot:   "/tmp/gar-test",
	}
}

func execute(t *testing.T, deps cli.Dependencies, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	deps.Args = cli.Arguments{OutWriter: &out, ErrWriter: &errOut}
	root := cli.NewRootCommand(deps)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestDetailCommand(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{result: review.Result{Success: true, Message: "review body"}}}

	out, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
	}, "detail", "git@github.com:acme/widgets.git", "feature/login")

	require.NoError(t, err)
	assert.Contains(t, out, "review body")

	req := fx.reviewer.request
	assert.Equal(t, "git@github.com:acme/widgets.git", req.Target.RemoteURL)
	assert.Equal(t, "main", req.Diff.BaseBranch)
	assert.Equal(t, "feature/login", req.Diff.FeatureBranch)
	assert.Equal(t, domain.ModeDetail, req.Mode)
	assert.Equal(t, "gemini-2.5-flash", req.Model)
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, 20480, req.MaxOutputTokens)
	assert.Contains(t, req.Template, "{{.CodeDiff}}")

	// Per-mode working copy under the configured root.
	assert.Equal(t, filepath.Join("/tmp/gar-test", "tmp-detail"), req.Target.LocalPath)
}

func TestReleaseCommand(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{result: review.Result{Success: true, Message: "ship it"}}}

	_, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
	}, "release", "https://github.com/acme/widgets.git", "rc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.ModeRelease, fx.reviewer.request.Mode)
	assert.Equal(t, filepath.Join("/tmp/gar-test", "tmp-release"), fx.reviewer.request.Target.LocalPath)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{result: review.Result{Success: true, Message: "ok"}}}

	_, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
	}, "detail", "url", "branch",
		"--base-branch", "develop",
		"--local-path", "/work/clone",
		"--model", "gemini-2.5-pro",
		"--temperature", "0.7",
		"--max-tokens", "4096",
		"--ssh-key-path", "/keys/ci_ed25519",
		"--skip-host-key-check")

	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", fx.model)
	assert.Equal(t, "/keys/ci_ed25519", fx.creds.SSHKeyPath)
	assert.True(t, fx.creds.SkipHostKeyCheck)

	req := fx.reviewer.request
	assert.Equal(t, "develop", req.Diff.BaseBranch)
	assert.Equal(t, "/work/clone", req.Target.LocalPath)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, 4096, req.MaxOutputTokens)
}

func TestFailedReviewBecomesCommandError(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{result: review.Result{
		Success: false,
		Message: "branch not found: origin/ghost",
	}}}

	out, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
	}, "detail", "url", "ghost")

	require.Error(t, err)
	assert.Equal(t, "branch not found: origin/ghost", err.Error())
	assert.NotContains(t, out, "branch not found", "failure message goes to the error path, not stdout")
}

func TestArgumentCountValidation(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{result: review.Result{Success: true}}}
	deps := cli.Dependencies{BuildReviewer: fx.build, Defaults: testDefaults()}

	_, _, err := execute(t, deps, "detail", "only-url")
	require.Error(t, err)

	_, _, err = execute(t, deps, "detail", "url", "branch", "extra")
	require.Error(t, err)

	assert.Equal(t, 0, fx.reviewer.calls)
}

func TestTemperatureValidation(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{result: review.Result{Success: true}}}

	_, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
	}, "detail", "url", "branch", "--temperature", "1.5")

	require.Error(t, err)
	var confErr *domain.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, err.Error(), "temperature")
	assert.Equal(t, 0, fx.reviewer.calls)
}

func TestMaxTokensValidation(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{result: review.Result{Success: true}}}

	_, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
	}, "release", "url", "branch", "--max-tokens", "0")

	require.Error(t, err)
	var confErr *domain.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, 0, fx.reviewer.calls)
}

func TestBuildReviewerFailurePropagates(t *testing.T) {
	fx := &capture{buildErr: errors.New("missing API key")}

	_, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
	}, "detail", "url", "branch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
}

func TestVersionFlag(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{}}

	out, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
		Version:       "v1.2.3",
	}, "--version")

	require.ErrorIs(t, err, cli.ErrVersionRequested)
	assert.Equal(t, "v1.2.3", strings.TrimSpace(out))
	assert.Equal(t, 0, fx.reviewer.calls)
}

func TestRootWithoutArgsShowsHelp(t *testing.T) {
	fx := &capture{reviewer: &fakeReviewer{}}

	out, _, err := execute(t, cli.Dependencies{
		BuildReviewer: fx.build,
		Defaults:      testDefaults(),
	})

	require.NoError(t, err)
	assert.Contains(t, out, "detail")
	assert.Contains(t, out, "release")
}
