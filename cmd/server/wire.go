//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/domain/retrieval"
	"focusnote/scan-api/internal/domain/scan"
	"focusnote/scan-api/internal/infrastructure/auth"
	"focusnote/scan-api/internal/infrastructure/converter"
	"focusnote/scan-api/internal/infrastructure/logger"
	artifactrepo "focusnote/scan-api/internal/infrastructure/repository/artifact"
	conversationrepo "focusnote/scan-api/internal/infrastructure/repository/conversation"
	"focusnote/scan-api/internal/infrastructure/storage"
	"focusnote/scan-api/internal/interfaces/httpserver"
	"focusnote/scan-api/internal/interfaces/httpserver/handlers"
)

var repositorySet = wire.NewSet(
	conversationrepo.NewRepository,
	artifactrepo.NewRepository,
	wire.Bind(new(conversation.Repository), new(*conversationrepo.Repository)),
	wire.Bind(new(artifact.Repository), new(*artifactrepo.Repository)),
	wire.Bind(new(artifact.ConversationFinder), new(*conversationrepo.Repository)),
	wire.Bind(new(retrieval.ConversationReader), new(*conversationrepo.Repository)),
	wire.Bind(new(retrieval.ArtifactReader), new(*artifactrepo.Repository)),
)

var domainSet = wire.NewSet(
	provideChatCompleter,
	conversation.NewService,
	provideStorage,
	wire.Bind(new(artifact.Storage), new(storage.Backend)),
	artifact.NewService,
	converter.NewClient,
	wire.Bind(new(scan.Converter), new(*converter.Client)),
	wire.Bind(new(scan.ConversationCreator), new(*conversation.Service)),
	wire.Bind(new(scan.ArtifactStore), new(*artifact.Service)),
	scan.NewService,
	wire.Bind(new(retrieval.PayloadOpener), new(*artifact.Service)),
	retrieval.NewService,
)

var httpSet = wire.NewSet(
	wire.Bind(new(handlers.ScanService), new(*scan.Service)),
	wire.Bind(new(handlers.ConversationService), new(*conversation.Service)),
	wire.Bind(new(handlers.ArtifactService), new(*artifact.Service)),
	wire.Bind(new(handlers.RetrievalService), new(*retrieval.Service)),
	handlers.NewProvider,
	readinessChecks,
	httpserver.New,
)

// BuildApplication assembles the scan API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		newDatabaseConfig,
		newGormDB,
		repositorySet,
		domainSet,
		httpSet,
		NewApplication,
	)
	return nil, nil
}

func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Backend, error) {
	return storage.New(ctx, cfg, log)
}
