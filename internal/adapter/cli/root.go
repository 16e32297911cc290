package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prototypus/git-ai-reviewer/internal/domain"
	"github.com/prototypus/git-ai-reviewer/internal/prompts"
	"github.com/prototypus/git-ai-reviewer/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Reviewer defines the dependency required to run a review command.
type Reviewer interface {
	Run(ctx context.Context, req review.Request) review.Result
}

// BuildReviewerFunc constructs a reviewer bound to the transport
// credentials and model chosen on the command line. Credentials are
// scoped to the returned reviewer instance, never to the process
// environment.
type BuildReviewerFunc func(creds domain.TransportCredentials, model string) (Reviewer, error)

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Defaults holds flag default values sourced from configuration.
type Defaults struct {
	BaseBranch       string
	Model            string
	Temperature      float64
	MaxOutputTokens  int
	SSHKeyPath       string
	SkipHostKeyCheck bool
	LocalPathRoot    string
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	BuildReviewer BuildReviewerFunc
	Args          Arguments
	Defaults      Defaults
	Version       string
}

// NewRootCommand constructs the root Cobra command with one subcommand
// per review mode.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "gar",
		Short: "AI code review for git branches",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(modeCommand(deps, domain.ModeDetail,
		"Review the branch diff with a focus on code quality"))
	root.AddCommand(modeCommand(deps, domain.ModeRelease,
		"Review the branch diff with a focus on release readiness"))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func modeCommand(deps Dependencies, mode domain.ReviewMode, short string) *cobra.Command {
	var baseBranch string
	var localPath string
	var sshKeyPath string
	var skipHostKeyCheck bool
	var model string
	var temperature float64
	var maxTokens int

	cmd := &cobra.Command{
		Use:   string(mode) + " CLONE_URL FEATURE_BRANCH",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cloneURL, featureBranch := args[0], args[1]

			if temperature < 0 || temperature > 1 {
				return &domain.ConfigurationError{Reason: fmt.Sprintf("temperature %v is outside [0, 1]", temperature)}
			}
			if maxTokens <= 0 {
				return &domain.ConfigurationError{Reason: fmt.Sprintf("max-tokens %d must be positive", maxTokens)}
			}

			template, err := prompts.Load(mode)
			if err != nil {
				return err
			}

			creds := domain.TransportCredentials{
				SSHKeyPath:       sshKeyPath,
				SkipHostKeyCheck: skipHostKeyCheck,
			}
			reviewer, err := deps.BuildReviewer(creds, model)
			if err != nil {
				return err
			}

			if localPath == "" {
				localPath = defaultLocalPath(deps.Defaults.LocalPathRoot, mode)
			}

			result := reviewer.Run(cmd.Context(), review.Request{
				Target: domain.RepositoryTarget{
					RemoteURL: cloneURL,
					LocalPath: localPath,
				},
				Diff: domain.DiffRequest{
					BaseBranch:    baseBranch,
					FeatureBranch: featureBranch,
				},
				Mode:            mode,
				Template:        template,
				Model:           model,
				Temperature:     temperature,
				MaxOutputTokens: maxTokens,
			})

			if !result.Success {
				return errors.New(result.Message)
			}

			out := cmd.OutOrStdout()
			if review.IsOutputTerminal() {
				_, _ = fmt.Fprintln(out, "\n--- AI Review Result ---")
				_, _ = fmt.Fprintln(out, result.Message)
				_, _ = fmt.Fprintln(out, "------------------------")
			} else {
				_, _ = fmt.Fprintln(out, result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseBranch, "base-branch", deps.Defaults.BaseBranch, "Base branch to diff against")
	cmd.Flags().StringVar(&localPath, "local-path", "", "Local working copy path (default: per-mode temp directory)")
	cmd.Flags().StringVar(&sshKeyPath, "ssh-key-path", deps.Defaults.SSHKeyPath, "Path to the SSH private key for git transport")
	cmd.Flags().BoolVar(&skipHostKeyCheck, "skip-host-key-check", deps.Defaults.SkipHostKeyCheck, "Disable SSH host key verification")
	cmd.Flags().StringVar(&model, "model", deps.Defaults.Model, "Gemini model name")
	cmd.Flags().Float64Var(&temperature, "temperature", deps.Defaults.Temperature, "Sampling temperature in [0, 1]")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", deps.Defaults.MaxOutputTokens, "Maximum output tokens")

	return cmd
}

// defaultLocalPath derives a per-mode working copy location so the two
// review modes never race over the same clone.
func defaultLocalPath(root string, mode domain.ReviewMode) string {
	if root == "" {
		root = filepath.Join(os.TempDir(), "git-ai-reviewer")
	}
	return filepath.Join(root, "tmp-"+string(mode))
}
