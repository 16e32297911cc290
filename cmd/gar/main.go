package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prototypus/git-ai-reviewer/internal/adapter/cli"
	"github.com/prototypus/git-ai-reviewer/internal/adapter/gitexec"
	"github.com/prototypus/git-ai-reviewer/internal/adapter/llm/gemini"
	llmhttp "github.com/prototypus/git-ai-reviewer/internal/adapter/llm/http"
	"github.com/prototypus/git-ai-reviewer/internal/adapter/observability"
	"github.com/prototypus/git-ai-reviewer/internal/adapter/output/markdown"
	"github.com/prototypus/git-ai-reviewer/internal/adapter/repository"
	"github.com/prototypus/git-ai-reviewer/internal/adapter/store/sqlite"
	"github.com/prototypus/git-ai-reviewer/internal/config"
	"github.com/prototypus/git-ai-reviewer/internal/domain"
	"github.com/prototypus/git-ai-reviewer/internal/usecase/review"
	"github.com/prototypus/git-ai-reviewer/internal/version"
)

func main() {
	if err := run(); err != nil {
		// Redact API keys from URLs in error messages before logging
		log.Println(llmhttp.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Create cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "gar",
		EnvPrefix:   "GAR",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := buildLogger(cfg.Observability.Logging)

	var reviewLogger review.Logger
	if logger != nil {
		reviewLogger = observability.NewReviewLogger(logger)
	}

	var store review.Store
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else if sqliteStore, err := sqlite.NewStore(cfg.Store.Path); err != nil {
			log.Printf("warning: failed to initialize store: %v", err)
		} else {
			store = sqliteStore
			defer sqliteStore.Close()
		}
	}

	var reports review.ReportWriter
	if cfg.Output.Directory != "" {
		nowFunc := func() string {
			return time.Now().UTC().Format("20060102T150405Z")
		}
		reports = markdown.NewWriter(cfg.Output.Directory, nowFunc)
	}

	retryConf := buildRetryConfig(cfg.Retry)
	apiKey := resolveAPIKey(cfg.Gemini)

	buildReviewer := func(creds domain.TransportCredentials, model string) (cli.Reviewer, error) {
		if apiKey == "" {
			return nil, &domain.ConfigurationError{Reason: "Gemini API key is not set (config gemini.apiKey or env GEMINI_API_KEY)"}
		}

		runner := gitexec.NewRunner(creds.EnvOverlay()...)

		caller := gemini.NewClient(apiKey, model, retryConf)
		if timeout, err := time.ParseDuration(cfg.Gemini.Timeout); err == nil && timeout > 0 {
			caller.SetTimeout(timeout)
		}
		if logger != nil {
			caller.SetLogger(logger)
		}

		return review.NewOrchestrator(review.Deps{
			Synchronizer: repository.NewSynchronizer(runner),
			DiffComputer: repository.NewExtractor(runner),
			AICaller:     caller,
			Store:        store,
			Reports:      reports,
			Logger:       reviewLogger,
		}), nil
	}

	root := cli.NewRootCommand(cli.Dependencies{
		BuildReviewer: buildReviewer,
		Defaults: cli.Defaults{
			BaseBranch:       cfg.Git.BaseBranch,
			Model:            cfg.Gemini.Model,
			Temperature:      cfg.Gemini.Temperature,
			MaxOutputTokens:  cfg.Gemini.MaxOutputTokens,
			SSHKeyPath:       cfg.SSH.KeyPath,
			SkipHostKeyCheck: cfg.SSH.SkipHostKeyCheck,
			LocalPathRoot:    cfg.Git.LocalPathRoot,
		},
		Version: version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return err
	}
	return nil
}

func buildLogger(cfg config.LoggingConfig) llmhttp.Logger {
	if !cfg.Enabled {
		return nil
	}
	return llmhttp.NewDefaultLogger(
		llmhttp.ParseLogLevel(cfg.Level),
		llmhttp.ParseLogFormat(cfg.Format),
		cfg.RedactAPIKeys,
	)
}

func buildRetryConfig(cfg config.RetryConfig) llmhttp.RetryConfig {
	retryConf := llmhttp.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retryConf.MaxAttempts = cfg.MaxAttempts
	}
	if d, err := time.ParseDuration(cfg.InitialDelay); err == nil && d > 0 {
		retryConf.InitialDelay = d
	}
	if cfg.Multiplier > 0 {
		retryConf.Multiplier = cfg.Multiplier
	}
	return retryConf
}

// resolveAPIKey prefers the config value, falling back to the
// conventional environment variable.
func resolveAPIKey(cfg config.GeminiConfig) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gar"))
	}
	return paths
}
