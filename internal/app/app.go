package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/handlers"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/market"
	"github.com/ternarybob/folio/internal/services/auth"
	"github.com/ternarybob/folio/internal/services/knowledge"
	"github.com/ternarybob/folio/internal/services/llm"
	"github.com/ternarybob/folio/internal/services/mailer"
	"github.com/ternarybob/folio/internal/services/narrative"
	"github.com/ternarybob/folio/internal/services/portfolio"
	"github.com/ternarybob/folio/internal/services/render"
	"github.com/ternarybob/folio/internal/services/report"
	"github.com/ternarybob/folio/internal/services/scheduler"
	badgerstorage "github.com/ternarybob/folio/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Market data
	MarketGateway interfaces.MarketGateway

	// AI services. LLMService is nil when no provider is configured;
	// dependent features degrade instead of blocking startup.
	LLMService       interfaces.LLMService
	NarrativeService *narrative.Service
	KnowledgeService *knowledge.Service

	// Report pipeline
	Renderer           *render.Renderer
	ReportOrchestrator *report.Orchestrator
	ReportDispatcher   *report.Dispatcher

	// Domain services
	PortfolioService *portfolio.Service
	MailerService    *mailer.Service
	AuthService      *auth.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	AuthHandler      *handlers.AuthHandler
	PortfolioHandler *handlers.PortfolioHandler
	ReportHandler    *handlers.ReportHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	MailerHandler    *handlers.MailerHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Start the scheduler after all services are wired
	if cfg.Scheduler.Enabled {
		if err := app.SchedulerService.Start(); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
		logger.Info().
			Str("schedule", cfg.Scheduler.Schedule).
			Msg("Price refresh scheduler started")
	}

	logger.Info().
		Bool("llm_available", app.LLMService != nil).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badgerstorage.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Seed SMTP settings from config into the KV store. Existing keys win
	// so runtime edits survive restarts.
	if err := badgerstorage.SeedMailSettings(context.Background(), a.StorageManager.KeyValueStorage(), a.Config.Mail, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to seed mail settings")
	}

	return nil
}

// initServices initializes all business services in dependency order.
func (a *App) initServices() error {
	// Market data: EODHD client + Google News RSS, fanned out per symbol
	clientOpts := []market.ClientOption{
		market.WithBaseURL(a.Config.Market.BaseURL),
		market.WithTimeout(a.Config.Market.RequestTimeout),
		market.WithLogger(a.Logger),
	}
	if a.Config.Market.RateLimit > 0 {
		clientOpts = append(clientOpts, market.WithRateInterval(a.Config.Market.RateLimit))
	}
	client := market.NewClient(a.Config.Market.APIKey, clientOpts...)
	news := market.NewNewsFetcher(
		market.WithNewsHTTPClient(&http.Client{Timeout: a.Config.Market.NewsTimeout}),
		market.WithNewsLogger(a.Logger),
	)
	marketService := market.NewService(client, news, a.Logger)
	a.MarketGateway = market.NewGateway(marketService, a.Config.Market.RequestTimeout, a.Config.Market.NewsLimit, a.Logger)
	a.Logger.Debug().Msg("Market data services initialized")

	// LLM service (Gemini default, Claude optional)
	llmService, err := llm.NewService(a.Config, a.StorageManager.KeyValueStorage(), a.Logger)
	if err != nil {
		a.LLMService = nil
		a.Logger.Warn().Err(err).Msg("Failed to initialize LLM service - AI features will be unavailable")
		a.Logger.Info().Msg("To enable AI features, set FOLIO_GEMINI_API_KEY or gemini.api_key in config")
	} else {
		if err := llmService.HealthCheck(context.Background()); err != nil {
			a.LLMService = nil
			a.Logger.Warn().Err(err).Msg("LLM service health check failed - service disabled")
			a.Logger.Info().Msg("To enable AI features, provide a valid API key")
		} else {
			a.LLMService = llmService
			a.Logger.Debug().Msg("LLM service initialized and health check passed")
		}
	}

	// Narrative generation degrades to canned text without an LLM
	a.NarrativeService = narrative.NewService(a.LLMService, a.Logger)

	// Report pipeline
	a.Renderer = render.NewRenderer(a.Config.Report, a.Logger)
	a.MailerService = mailer.NewService(a.StorageManager.KeyValueStorage(), a.Logger)
	a.ReportOrchestrator = report.NewOrchestrator(a.MarketGateway, a.NarrativeService, a.Logger)
	a.ReportDispatcher = report.NewDispatcher(a.ReportOrchestrator, a.Renderer, a.MailerService, a.StorageManager.ReportStorage(), a.Logger)

	// Domain services
	a.PortfolioService = portfolio.NewService(
		a.StorageManager.PortfolioStorage(),
		a.StorageManager.UserStorage(),
		a.MarketGateway,
		a.Logger,
	)
	a.AuthService = auth.NewService(
		a.StorageManager.UserStorage(),
		a.StorageManager.SessionStorage(),
		a.Logger,
	)

	// Knowledge base requires embeddings, so it rides on LLM availability
	if a.LLMService != nil {
		a.KnowledgeService = knowledge.NewService(
			a.StorageManager.KnowledgeStorage(),
			a.LLMService,
			a.Config.Knowledge,
			a.Logger,
		)
		seeded, err := a.KnowledgeService.Seed(context.Background(), a.Config.Knowledge.SeedDir)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Knowledge base seeding failed")
		} else if seeded > 0 {
			a.Logger.Info().Int("documents", seeded).Msg("Knowledge base seeded")
		}
	} else {
		a.Logger.Warn().Msg("Knowledge base disabled - no LLM service available")
	}

	// Scheduler with the background maintenance jobs
	a.SchedulerService = scheduler.NewService(a.Logger)
	if err := a.registerJobs(); err != nil {
		return fmt.Errorf("failed to register scheduled jobs: %w", err)
	}

	return nil
}

// registerJobs wires the background jobs into the scheduler
func (a *App) registerJobs() error {
	// Refresh stored prices for the working portfolio during trading hours
	if err := a.SchedulerService.RegisterJob("price-refresh", a.Config.Scheduler.Schedule, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Market.RequestTimeout*4)
		defer cancel()
		_, err := a.PortfolioService.GetLatest(ctx, portfolio.DemoUserEmail)
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil
		}
		return err
	}); err != nil {
		return err
	}

	// Purge expired sessions nightly
	return a.SchedulerService.RegisterJob("session-cleanup", "0 0 3 * * *", func() error {
		deleted, err := a.StorageManager.SessionStorage().DeleteExpiredSessions(context.Background())
		if err != nil {
			return err
		}
		if deleted > 0 {
			a.Logger.Info().Int("deleted", deleted).Msg("Expired sessions purged")
		}
		return nil
	})
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	a.AuthHandler = handlers.NewAuthHandler(a.AuthService, a.Logger)

	// The extractor is only offered when a vision-capable provider is up
	var extractor handlers.HoldingsExtractor
	if a.LLMService != nil {
		extractor = a.LLMService
	}
	a.PortfolioHandler = handlers.NewPortfolioHandler(a.PortfolioService, extractor, a.NarrativeService, a.AuthService, a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.ReportDispatcher, a.PortfolioService, a.StorageManager.ReportStorage(), a.AuthService, a.Logger)

	var knowledgeService handlers.KnowledgeServiceInterface
	if a.KnowledgeService != nil {
		knowledgeService = a.KnowledgeService
	}
	a.KnowledgeHandler = handlers.NewKnowledgeHandler(knowledgeService, a.Logger)
	a.MailerHandler = handlers.NewMailerHandler(a.MailerService, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// Close shuts down services in reverse initialization order
func (a *App) Close() error {
	// Stop scheduler service
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Close LLM service
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		} else {
			a.Logger.Info().Msg("LLM service closed")
		}
	}

	// Close storage
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
