package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/resume-enhancer/internal/config"
	"github.com/jonathan/resume-enhancer/internal/jobpost"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/observability"
	"github.com/jonathan/resume-enhancer/internal/rendering"
	"github.com/jonathan/resume-enhancer/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadSettings layers flags over environment over config file over built-in defaults.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	var fileCfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg = *loaded
	}

	envCfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, err
	}

	cfg := envCfg.MergeWithDefaults(fileCfg)
	cfg = cfg.MergeWithDefaults(config.Defaults())

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = modelName
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newDependencies builds the language model client and renderer shared by
// every session. The returned close function releases the client.
func newDependencies(ctx context.Context, cfg config.Config, logger *zap.Logger) (session.Dependencies, func(), error) {
	llmCfg := cfg.LLMConfig()
	client, err := llm.NewClient(ctx, llmCfg)
	if err != nil {
		return session.Dependencies{}, nil, fmt.Errorf("failed to create %s client: %w", llmCfg.Provider, err)
	}

	converter, err := rendering.NewConverter(cfg.PDFEngine, cfg.PDFEnginePath, time.Duration(cfg.PDFTimeout))
	if err != nil {
		_ = client.Close()
		return session.Dependencies{}, nil, err
	}

	logger.Debug("dependencies ready",
		zap.String("provider", string(llmCfg.Provider)),
		zap.String("model", llmCfg.Model),
		zap.String("pdf_engine", cfg.PDFEngine),
		zap.String("output_dir", cfg.OutputDir))

	deps := session.Dependencies{
		Client:   client,
		Model:    llmCfg.Model,
		Renderer: rendering.NewRenderer(cfg.OutputDir, converter),
		Logger:   logger,
	}
	return deps, func() { _ = client.Close() }, nil
}

// newLogger builds the zap logger for cfg, flushing is left to the caller.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// newJobFetcher returns the posting fetcher for --job-url. Script-rendered
// postings reuse the Chrome binary configured for PDF output.
func newJobFetcher(cfg config.Config, logger *zap.Logger) *jobpost.Fetcher {
	browser := &jobpost.ChromeBrowser{Timeout: time.Duration(cfg.PDFTimeout)}
	if strings.EqualFold(cfg.PDFEngine, rendering.EngineChrome) {
		browser.ExecPath = cfg.PDFEnginePath
	}
	return jobpost.NewFetcher(browser, logger)
}
