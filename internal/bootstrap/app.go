package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/quality-gate/internal/application"
	appai "github.com/bryanwahyu/quality-gate/internal/application/ai"
	appanalyses "github.com/bryanwahyu/quality-gate/internal/application/analyses"
	"github.com/bryanwahyu/quality-gate/internal/config"
	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
	aiclient "github.com/bryanwahyu/quality-gate/internal/infra/ai/openai"
	"github.com/bryanwahyu/quality-gate/internal/infra/ai/prompt"
	"github.com/bryanwahyu/quality-gate/internal/infra/analyzer/static"
	"github.com/bryanwahyu/quality-gate/internal/infra/db"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/memory"
	"github.com/bryanwahyu/quality-gate/internal/infra/executor/pytools"
	"github.com/bryanwahyu/quality-gate/internal/infra/storage"
	"github.com/bryanwahyu/quality-gate/internal/middleware"
)

// App is the wired service graph shared by the HTTP server and the CLI.
type App struct {
	Config  *config.Config
	Service *appanalyses.Service
	// DB is nil for in-memory apps.
	DB *sql.DB
	// Store is nil when MinIO is disabled.
	Store *storage.Store
}

// New connects to the configured database and wires every collaborator.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, repo, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app, err := assemble(ctx, cfg, repo)
	if err != nil {
		conn.Close()
		return nil, err
	}
	app.DB = conn
	return app, nil
}

// NewInMemory wires the same graph on top of a throwaway repository.
func NewInMemory(ctx context.Context, cfg *config.Config) (*App, error) {
	return assemble(ctx, cfg, memory.NewAnalysisRepository())
}

func assemble(ctx context.Context, cfg *config.Config, repo domain.Repository) (*App, error) {
	app := &App{Config: cfg}

	var reports domain.ReportStore
	if cfg.Minio.Enabled {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		app.Store = store
		reports = store
	}

	app.Service = &appanalyses.Service{
		Repo:     repo,
		Rules:    static.New(),
		Tools:    pytools.NewRunner(ToolOptions(cfg)),
		Reviewer: Reviewer(cfg),
		Reports:  reports,
		Clock:    application.SystemClock{},
		Gate:     Gate(cfg),
	}
	return app, nil
}

// ToolOptions maps the gate section onto the flake8/bandit runner.
func ToolOptions(cfg *config.Config) pytools.Options {
	opts := pytools.DefaultOptions()
	g := cfg.Gate
	if g.Flake8.Path != "" {
		opts.Flake8Path = g.Flake8.Path
	}
	if g.Flake8.MaxLineLength > 0 {
		opts.Flake8MaxLine = g.Flake8.MaxLineLength
	}
	if g.Flake8.Ignore != nil {
		opts.Flake8Ignore = g.Flake8.Ignore
	}
	if g.Flake8.Timeout > 0 {
		opts.Flake8Timeout = g.Flake8.Timeout
	}
	if g.Bandit.Path != "" {
		opts.BanditPath = g.Bandit.Path
	}
	if g.Bandit.Severity != "" {
		opts.BanditSeverity = g.Bandit.Severity
	}
	if g.Bandit.Timeout > 0 {
		opts.BanditTimeout = g.Bandit.Timeout
	}
	return opts
}

// Reviewer uses OpenAI when a key is configured, the offline simulator otherwise.
func Reviewer(cfg *config.Config) *appai.Service {
	if cfg.OpenAI.APIKey == "" {
		log.Printf("openai disabled: no api key, using simulated review")
		return appai.NewSimulatedService(prompt.Simulator{})
	}
	oc := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		oc.BaseURL = cfg.OpenAI.BaseURL
	}
	client := aiclient.NewClientWithConfig(oc, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens)
	client.Temperature = cfg.OpenAI.Temperature
	return appai.NewService(client)
}

// Gate builds the scoring policy.
func Gate(cfg *config.Config) domain.Gate {
	return domain.Gate{
		MinScore: cfg.Gate.MinScore,
		Penalties: domain.Penalties{
			Critical: cfg.Gate.Penalties.Critical,
			Warning:  cfg.Gate.Penalties.Warning,
			Info:     cfg.Gate.Penalties.Info,
		},
	}
}

// Checks are the readiness probes for /health and /healthz/ready.
func (a *App) Checks() map[string]middleware.HealthChecker {
	checks := map[string]middleware.HealthChecker{}
	if a.DB != nil {
		checks["database"] = &middleware.DatabaseHealthChecker{DB: a.DB}
	}
	return checks
}

// Close releases the database connection.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
