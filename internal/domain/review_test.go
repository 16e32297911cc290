package domain_test

import (
	"strings"
	"testing"

	"github.com/prototypus/git-ai-reviewer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryTarget_Remote(t *testing.T) {
	target := domain.RepositoryTarget{RemoteURL: "git@github.com:acme/widgets.git"}
	assert.Equal(t, "origin", target.Remote())

	target.RemoteName = "upstream"
	assert.Equal(t, "upstream", target.Remote())
}

func TestTransportCredentials_SSHCommand(t *testing.T) {
	creds := domain.TransportCredentials{SSHKeyPath: "/keys/deploy_ed25519"}
	cmd := creds.SSHCommand()
	assert.Contains(t, cmd, `ssh -i "/keys/deploy_ed25519"`)
	assert.NotContains(t, cmd, "StrictHostKeyChecking")

	creds.SkipHostKeyCheck = true
	cmd = creds.SSHCommand()
	assert.Contains(t, cmd, "-o StrictHostKeyChecking=no")
}

func TestTransportCredentials_SSHCommand_NoKey(t *testing.T) {
	creds := domain.TransportCredentials{}
	assert.Equal(t, "", creds.SSHCommand())
	assert.Nil(t, creds.EnvOverlay())
}

func TestTransportCredentials_EnvOverlay(t *testing.T) {
	creds := domain.TransportCredentials{SSHKeyPath: "/keys/id_rsa", SkipHostKeyCheck: true}
	overlay := creds.EnvOverlay()

	require.Len(t, overlay, 1)
	assert.True(t, strings.HasPrefix(overlay[0], "GIT_SSH_COMMAND=ssh -i "))
	assert.Contains(t, overlay[0], "StrictHostKeyChecking=no")
}

func TestDiffResult_IsEmpty(t *testing.T) {
	assert.True(t, domain.DiffResult{}.IsEmpty())
	assert.True(t, domain.DiffResult{UnifiedText: "  \n\t\n"}.IsEmpty())
	assert.False(t, domain.DiffResult{UnifiedText: "diff --git a/x b/x\n"}.IsEmpty())
}

func TestParseReviewMode(t *testing.T) {
	mode, err := domain.ParseReviewMode("detail")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDetail, mode)

	mode, err = domain.ParseReviewMode("release")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeRelease, mode)

	_, err = domain.ParseReviewMode("summary")
	require.Error(t, err)

	var confErr *domain.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, err.Error(), "unknown review mode")
}
