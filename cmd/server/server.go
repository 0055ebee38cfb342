package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/domain/retrieval"
	"focusnote/scan-api/internal/domain/scan"
	"focusnote/scan-api/internal/infrastructure/auth"
	"focusnote/scan-api/internal/infrastructure/converter"
	"focusnote/scan-api/internal/infrastructure/database"
	"focusnote/scan-api/internal/infrastructure/logger"
	"focusnote/scan-api/internal/infrastructure/observability"
	"focusnote/scan-api/internal/infrastructure/openaichat"
	artifactrepo "focusnote/scan-api/internal/infrastructure/repository/artifact"
	conversationrepo "focusnote/scan-api/internal/infrastructure/repository/conversation"
	"focusnote/scan-api/internal/infrastructure/storage"
	"focusnote/scan-api/internal/interfaces/httpserver"
	"focusnote/scan-api/internal/interfaces/httpserver/handlers"
)

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := newGormDB(ctx, newDatabaseConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize database")
	}

	blobs, err := storage.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth")
	}

	conversationRepository := conversationrepo.NewRepository(db)
	artifactRepository := artifactrepo.NewRepository(db)

	conversationService := conversation.NewService(cfg, conversationRepository, provideChatCompleter(cfg, log), log)
	artifactService := artifact.NewService(cfg, artifactRepository, blobs, conversationRepository, log)
	scanService := scan.NewService(cfg, converter.NewClient(cfg, log), conversationService, artifactService, log)
	retrievalService := retrieval.NewService(conversationRepository, artifactRepository, artifactService, log)

	provider := handlers.NewProvider(cfg, scanService, conversationService, artifactService, retrievalService, log)
	httpServer := httpserver.New(cfg, log, provider, authValidator, readinessChecks(db, blobs)...)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DatabaseURL,
		ReadDSN:         cfg.GetDatabaseReadDSN(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

// provideChatCompleter picks the backend for AI replies.
func provideChatCompleter(cfg *config.Config, log zerolog.Logger) conversation.ChatCompleter {
	if cfg.UsesOpenAIChat() {
		return openaichat.NewClient(cfg, log)
	}
	return converter.NewChatClient(cfg, log)
}

func readinessChecks(db *gorm.DB, blobs storage.Backend) []httpserver.ReadinessCheck {
	return []httpserver.ReadinessCheck{
		{
			Name: "database",
			Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
		{Name: "storage", Check: blobs.Health},
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
