package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/1Kunalvats9/dorry-backend/internal/ai"
	"github.com/1Kunalvats9/dorry-backend/internal/config"
	"github.com/1Kunalvats9/dorry-backend/internal/db"
	"github.com/1Kunalvats9/dorry-backend/internal/filestore"
	"github.com/1Kunalvats9/dorry-backend/internal/handler"
	"github.com/1Kunalvats9/dorry-backend/internal/job"
	"github.com/1Kunalvats9/dorry-backend/internal/middleware"
	"github.com/1Kunalvats9/dorry-backend/internal/pdfextract"
	"github.com/1Kunalvats9/dorry-backend/internal/repo"
	"github.com/1Kunalvats9/dorry-backend/internal/schedule"
	"github.com/1Kunalvats9/dorry-backend/internal/service"
	"github.com/1Kunalvats9/dorry-backend/internal/task"
	"github.com/1Kunalvats9/dorry-backend/internal/vecindex"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "dorry",
		Short: "dorry backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run dorry server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, database *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	docRepo := repo.NewDocumentRepo(database)
	chunkRepo := repo.NewChunkRepo(database)
	convRepo := repo.NewConversationRepo(database)
	eventRepo := repo.NewEventRepo(database)

	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	aiProvider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	aiManager := ai.NewManager(aiProvider, ai.ManagerConfig{
		GenerateModel: cfg.AI.GenerateModel,
		EmbedModel:    cfg.AI.EmbedModel,
		EmbedDim:      cfg.AI.EmbedDim,
		Timeout:       cfg.AI.Timeout,
	})

	index := vecindex.New(database, aiManager, aiManager.EmbedDim())
	if err := index.EnsureCollection(context.Background()); err != nil {
		return fmt.Errorf("init vector collection: %w", err)
	}

	blobStore, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	runner := task.NewRunner(cfg.Jobs.Workers, 128)

	eventService := service.NewEventService(eventRepo, chunkRepo, aiManager)
	ingestService := service.NewIngestService(
		docRepo, chunkRepo, index, blobStore,
		pdfextract.New(), eventService, runner,
		cfg.Retrieval.ChunkWords,
	)
	documentService := service.NewDocumentService(docRepo, index, blobStore)
	chatService := service.NewChatService(convRepo, index, aiManager, cfg.Retrieval.TopK)

	deps := handler.RouterDeps{
		Documents:      handler.NewDocumentHandler(documentService, ingestService, eventService),
		Chat:           handler.NewChatHandler(chatService),
		Events:         handler.NewEventHandler(eventService),
		JWTSecret:      []byte(cfg.JWTSecret),
		ChatRateWindow: time.Duration(cfg.ChatRateSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner.Start(ctx)

	scheduler := schedule.NewScheduler()
	if err := scheduler.AddJob(job.NewEventBackfillJob(docRepo, eventService), cfg.Jobs.EventBackfillSpec); err != nil {
		return fmt.Errorf("schedule event backfill: %w", err)
	}
	if err := scheduler.AddJob(job.NewBlobCleanupJob(docRepo, blobStore), cfg.Jobs.BlobCleanupSpec); err != nil {
		return fmt.Errorf("schedule blob cleanup: %w", err)
	}
	scheduler.Start(ctx)

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	runner.Stop()
	return nil
}
