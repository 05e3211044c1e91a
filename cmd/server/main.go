package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nordhen/credgate/internal/pkg/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Bootstrap logging so config loading failures are still structured.
	logger.InitBootstrap()
	defer logger.Sync()

	app, err := initializeApplication()
	if err != nil {
		logger.L().Fatal("application init failed", zap.Error(err))
	}
	defer app.Cleanup()

	if err := logger.Init(logger.InitOptions{
		Level:       app.Config.Log.Level,
		Format:      app.Config.Log.Format,
		ServiceName: app.Config.Log.ServiceName,
		Environment: app.Config.Log.Environment,
		Caller:      app.Config.Log.Caller,
		Output: logger.OutputOptions{
			ToStdout: app.Config.Log.Output.ToStdout,
			ToFile:   app.Config.Log.Output.ToFile,
			FilePath: app.Config.Log.Output.FilePath,
		},
		Rotation: logger.RotationOptions{
			MaxSizeMB:  app.Config.Log.Rotation.MaxSizeMB,
			MaxBackups: app.Config.Log.Rotation.MaxBackups,
			MaxAgeDays: app.Config.Log.Rotation.MaxAgeDays,
			Compress:   app.Config.Log.Rotation.Compress,
			LocalTime:  app.Config.Log.Rotation.LocalTime,
		},
	}); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	logger.L().Info("starting credgate",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("listen", app.Server.Addr),
	)

	go func() {
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(ctx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
	logger.L().Info("server stopped")
}
