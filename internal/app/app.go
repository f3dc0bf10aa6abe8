package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Shopvora/internal/config"
	"github.com/markdave123-py/Shopvora/internal/core"
	db "github.com/markdave123-py/Shopvora/internal/core/database"
	"github.com/markdave123-py/Shopvora/internal/core/indexing"
	"github.com/markdave123-py/Shopvora/internal/core/llm"
	objectclient "github.com/markdave123-py/Shopvora/internal/core/object-client"
	"github.com/markdave123-py/Shopvora/internal/logging"
	"github.com/markdave123-py/Shopvora/internal/services"
)

type App struct {
	DBClient *db.DatabaseClient
	Services *Services
	Server   *Server

	embedder *llm.GeminiEmbedder
	llm      *llm.GeminiLLM
	stop     context.CancelFunc
	log      zerolog.Logger
}

// NewApp connects to the backing services and assembles the HTTP server.
// Media uploads and the assistant are only wired when their credentials are set.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{log: logging.Component(logger, "app")}

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	a.log.Info().Msg("database initialized and ready")

	var objClient core.ObjectClient
	if cfg.MediaEnabled() {
		s3Client, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		objClient = s3Client
		a.log.Info().Str("bucket", cfg.BucketName).Msg("object client initialized and ready")
	} else {
		a.log.Warn().Msg("AWS credentials not set, media uploads disabled")
	}

	var (
		embedder  core.EmbeddingProvider
		generator core.LLMProvider
		queue     services.IndexQueue
	)
	if cfg.AssistantEnabled() {
		a.embedder, err = llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
		}
		a.llm, err = llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
		}
		embedder, generator = a.embedder, a.llm

		indexer := indexing.NewBlogIndexer(dbClient, a.embedder, indexing.NewDocconvExtractor(false), &indexing.IndexConfig{
			TargetTokens:  200,
			OverlapTokens: 20,
			BatchSize:     16,
			EmbedDim:      cfg.EmbedDim,
		}, logger)

		// Workers live as long as the process, not the startup deadline.
		workerCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
		a.stop = stop
		indexer.Start(workerCtx, cfg.IndexWorkers)
		queue = indexer
		a.log.Info().Int("workers", cfg.IndexWorkers).Msg("assistant enabled, blog indexer started")
	} else {
		a.log.Warn().Msg("GEMINI_API_KEY not set, assistant disabled")
	}

	a.Services = NewServices(cfg, dbClient, objClient, queue, logger)

	router, err := NewRouter(cfg, a.Services, dbClient, embedder, generator, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building router: %w", err)
	}
	a.Server = NewServer(cfg.Port, router, logging.Component(logger, "http"))
	return a, nil
}

func (a *App) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.DBClient != nil {
		if err := a.DBClient.Close(); err != nil {
			a.log.Error().Err(err).Msg("closing database")
		}
	}
}
