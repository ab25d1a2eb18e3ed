package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mkarlsen/sunwatch/internal/config"
	"github.com/mkarlsen/sunwatch/internal/db"
	"github.com/mkarlsen/sunwatch/internal/httpapi"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/service"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/store"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/store/jsonfile"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/store/memory"
	sqlitestore "github.com/mkarlsen/sunwatch/internal/sunwatch/store/sqlite"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "sunwatch-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, cleanup, err := openEventStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("event store: %v", err)
	}
	defer cleanup()

	// Scheduler
	resolver := service.NewResolver(events, logger)
	monitor := service.NewMonitor(service.MonitorDeps{
		Resolver: resolver,
		Logger:   logger,
	}, service.MonitorConfig{
		LookAhead:     cfg.LookAhead,
		FallbackPoll:  cfg.FallbackPoll,
		LookupTimeout: cfg.LookupTimeout,
	})
	monitor.Start(ctx)
	defer monitor.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:  logger,
		Addr:    cfg.HTTPAddr,
		Monitor: monitor,
		Events:  events,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// openEventStore builds the configured events backend.  The returned cleanup
// releases whatever the backend holds (DB handle, write worker, file watcher).
func openEventStore(ctx context.Context, cfg config.Config, logger *log.Logger) (store.EventStore, func(), error) {
	switch cfg.EventStore {
	case "sqlite":
		conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return nil, nil, err
		}
		if cfg.Env == "dev" {
			if err := db.SeedDev(ctx, conn); err != nil {
				logger.Printf("dev seed failed: %v", err)
			}
		}
		writer := db.NewWorker(conn)
		cleanup := func() {
			writer.Close()
			_ = conn.Close()
		}
		logger.Printf("using sqlite event store at %s", cfg.DBPath)
		return sqlitestore.NewEventStore(conn, writer), cleanup, nil

	case "json":
		js, err := jsonfile.New(cfg.EventsPath, logger)
		if err != nil {
			return nil, nil, err
		}
		stopWatch, err := js.Watch()
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("using json event store at %s (%d dates)", cfg.EventsPath, js.Len())
		return js, stopWatch, nil

	default: // "memory"
		logger.Printf("using empty in-memory event store")
		return memory.New(), func() {}, nil
	}
}
