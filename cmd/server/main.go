package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appwatch "github.com/amyhong0/imweb-cancel-notification/internal/application/watch"
	"github.com/amyhong0/imweb-cancel-notification/internal/domain/watch"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/config"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/imweb"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/logger"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/notify"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/persistence"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/scheduler"
	"github.com/amyhong0/imweb-cancel-notification/internal/interfaces/http/handler"
	"github.com/amyhong0/imweb-cancel-notification/internal/interfaces/http/middleware"
	"github.com/amyhong0/imweb-cancel-notification/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting imweb cancellation watcher",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Durable store: local SQLite file
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(cfg.Database.Path, gormLog)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database opened", zap.String("path", cfg.Database.Path))

	store := persistence.NewWatchRepository(db)

	// Platform client
	apiClient := imweb.NewClient(&imweb.Config{
		APIBaseURL:     cfg.Imweb.BaseURL,
		TimeoutSeconds: cfg.Imweb.TimeoutSeconds,
		PageSize:       cfg.Imweb.PageSize,
	}, log)

	// Desktop notifier
	notifier := notify.NewDesktop(&notify.Config{
		AppName:            cfg.Notify.AppName,
		Title:              cfg.Notify.Title,
		IconPath:           cfg.Notify.IconPath,
		TestTimeoutSeconds: cfg.Notify.TestTimeoutSeconds,
	}, log)

	// Poll cycle engine
	credentials := watch.ResolveCredentials(
		cfg.Imweb.APIKey, cfg.Imweb.APISecret,
		cfg.Imweb.DefaultAPIKey, cfg.Imweb.DefaultAPISecret,
	)
	if credentials == nil {
		log.Warn("No API credentials configured; poll cycles will be silent no-ops until configured")
	}

	watchService, err := appwatch.NewService(appwatch.Config{
		LookbackDays: cfg.Watch.LookbackDays,
		MaxPages:     cfg.Watch.MaxPages,
		MaxOrders:    cfg.Watch.MaxOrders,
		DebugOrders:  cfg.Watch.DebugOrders,
	}, credentials, apiClient, store, notifier, log)
	if err != nil {
		log.Fatal("Failed to create watch service", zap.Error(err))
	}

	// Scheduler driving the poll cycle
	pollScheduler, err := scheduler.NewPollScheduler(
		scheduler.Config{IntervalMinutes: cfg.Watch.IntervalMinutes},
		scheduler.ExecutorFunc(func(ctx context.Context) error {
			_, err := watchService.RunCycle(ctx)
			return err
		}),
		log,
	)
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}

	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	if err := pollScheduler.Start(schedulerCtx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	// First cycle fires immediately rather than one full interval from now.
	if _, err := pollScheduler.Reschedule(cfg.Watch.IntervalMinutes); err != nil {
		log.Error("Failed to arm the poll timer", zap.Error(err))
	}

	// HTTP control surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine)
	r.Register(handler.NewWatchHandler(watchService, pollScheduler, store, notifier))
	r.Register(handler.NewSystemHandler(cfg.App.Name, version))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pollScheduler.Stop(ctx); err != nil {
		log.Error("Scheduler shutdown error", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
