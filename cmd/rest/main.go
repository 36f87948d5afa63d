package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medimate-be/internal/bootstrap"
	"medimate-be/internal/config"
	"medimate-be/internal/server"
	"medimate-be/internal/tracer"
	"medimate-be/pkg/database"

	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Initialize Database
	var dbOpts []database.Option
	if cfg.IsProduction() {
		dbOpts = append(dbOpts, database.WithLogLevel(gormlogger.Warn))
	}
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, dbOpts...)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	defer database.Close(gormDB)

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	// 4. Tracer
	shutdownTracer := tracer.InitTracer(ctx, cfg.Telemetry, container.Logger)

	// 5. Server + background workers
	srv := server.New(cfg, container)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.Run(gctx)
	})
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			container.Logger.Error("Main", "Server shutdown failed", map[string]interface{}{"error": err})
		}
		return shutdownTracer(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		container.Logger.Error("Main", "Exited with error", map[string]interface{}{"error": err})
	}
	container.Logger.Info("Main", "Shutdown complete", nil)
}
