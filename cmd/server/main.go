package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"patientsummary/internal/ai"
	"patientsummary/internal/config"
	"patientsummary/internal/db"
	"patientsummary/internal/filestore"
	"patientsummary/internal/handler"
	"patientsummary/internal/index"
	"patientsummary/internal/job"
	"patientsummary/internal/middleware"
	"patientsummary/internal/pipeline"
	"patientsummary/internal/repo"
	"patientsummary/internal/schedule"
	"patientsummary/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "patientsummary",
		Short: "patient document summary backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the backend server",
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

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	userRepo := repo.NewUserRepo(conn)
	fileRepo := repo.NewFileRepo(conn)
	summaryRepo := repo.NewSummaryRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	generator := ai.NewGenerator(aiProvider, cfg.AI.Model)

	idx := index.New()
	jwtTTL := time.Hour * time.Duration(cfg.JWTTTLHours)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), jwtTTL)
	fileService := service.NewFileService(fileRepo, cfg.MaxUploadBytes)
	summaryService := service.NewSummaryService(generator, idx, cfg.QualityCheck)

	waitCeiling := time.Duration(cfg.Pipeline.WaitCeilingSeconds) * time.Second
	orchestrator := pipeline.NewOrchestrator(fileRepo, summaryRepo, store, idx, summaryService, pipeline.Options{
		UploadWorkers:     cfg.Pipeline.UploadWorkers,
		ExtractionWorkers: cfg.Pipeline.ExtractionWorkers,
		WaitCeiling:       waitCeiling,
		PollInterval:      time.Duration(cfg.Pipeline.PollSeconds) * time.Second,
	})

	deps := handler.RouterDeps{
		Auth:           handler.NewAuthHandler(authService),
		Files:          handler.NewFileHandler(fileService, summaryRepo, authService, orchestrator, store),
		Summaries:      handler.NewSummaryHandler(summaryService, summaryRepo, authService),
		JWTSecret:      []byte(cfg.JWTSecret),
		AuthRateWindow: time.Duration(cfg.AuthRateMillis) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewScheduler()
	// Records orphaned by a crash stay in processing; fail them once they
	// age past the pipeline's wait ceiling.
	reaper := job.NewSummaryReaperJob(summaryRepo, waitCeiling+time.Minute)
	if err := scheduler.AddJob(reaper, "*/5 * * * *"); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
