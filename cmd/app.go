package main

import (
	"fmt"
	"log/slog"

	"github.com/wesm/github-issue-chat/config"
	"github.com/wesm/github-issue-chat/internal/api"
	"github.com/wesm/github-issue-chat/internal/db"
	"github.com/wesm/github-issue-chat/internal/interpreter"
	"github.com/wesm/github-issue-chat/internal/registry"
)

// app holds the dependencies shared by the serve, ask and mcp commands
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	client      *api.GitHubClient
	registry    *registry.Registry
	journal     *db.DB
	interpreter *interpreter.Interpreter
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	client, err := api.NewGitHubClient(api.Options{
		Token:     cfg.GitHubToken,
		BaseURL:   cfg.APIBaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	journal, err := openJournal(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	opts := interpreter.Options{
		DefaultRepository: cfg.Repository(),
		PollInterval:      cfg.PollInterval,
		Logger:            logger,
	}
	if cfg.GitHubToken != "" {
		// GraphQL needs authentication; without a token subscriptions are not verified
		opts.Resolver = api.NewGraphQLClient(api.NewHTTPClient(cfg.GitHubToken, cfg.RequestTimeout), cfg.APIBaseURL)
	} else {
		logger.Warn("no GitHub token configured, requests are unauthenticated and rate-limited")
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		registry:    reg,
		journal:     journal,
		interpreter: interpreter.New(client, reg, opts),
	}, nil
}

func openJournal(path string) (*db.DB, error) {
	journal, err := db.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification journal: %w", err)
	}
	if err := journal.Initialize(); err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("failed to initialize notification journal: %w", err)
	}
	return journal, nil
}

func (a *app) Close() error {
	return a.journal.Close()
}
