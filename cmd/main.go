package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ptzcam/internal/camera"
	"ptzcam/internal/handlers"
	"ptzcam/internal/logger"
	"ptzcam/internal/models"
	"ptzcam/internal/repository"
	"ptzcam/internal/repository/db"
	"ptzcam/internal/server"
	"ptzcam/internal/service"

	"github.com/spf13/viper"
)

func main() {
	// load config.yml first so the log level can come from it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(sqlDB,
		viper.GetString("frames.dir"),
		viper.GetInt("frames.retention"),
	)
	ctrl := camera.NewHTTPController(log)
	grabber := camera.NewFFmpegGrabber(
		viper.GetString("ffmpeg.binary"),
		viper.GetDuration("ffmpeg.timeout"),
		log,
	)

	services, err := service.NewService(ctx, repos, ctrl, grabber, seedConfig(), serviceOptions(), log)
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, log)

	// start the preset rotation scheduler
	go services.Cycle.Run(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "ptzcam.db")
		dbPath = "ptzcam.db"
	}
	return db.InitDB(dbPath)
}

// seedConfig is adopted only the first time the process runs against
// an empty database; afterwards the persisted row wins.
func seedConfig() models.CameraConfig {
	cfg := models.CameraConfig{
		HomePreset:    viper.GetInt("camera.home_preset"),
		DwellTime:     viper.GetInt("camera.dwell_time"),
		HomeDwellTime: viper.GetInt("camera.home_dwell_time"),
		CaptureDelay:  viper.GetInt("camera.capture_delay"),
		ConnectionURL: viper.GetString("camera.connection_url"),
		Username:      viper.GetString("camera.username"),
		Secret:        viper.GetString("camera.secret"),
	}
	if cfg.DwellTime == 0 {
		cfg.DwellTime = 30
	}
	if cfg.HomeDwellTime == 0 {
		cfg.HomeDwellTime = 60
	}
	if cfg.CaptureDelay == 0 {
		cfg.CaptureDelay = 3
	}
	return cfg
}

func serviceOptions() service.Options {
	return service.Options{
		FreshnessWindow: viper.GetDuration("cache.max_age"),
		CaptureWait:     viper.GetDuration("cache.wait_timeout"),
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the scheduler and any in-flight captures
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
