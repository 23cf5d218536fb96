// Package main provides the webhook server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/duskbyte/courier-go/internal/config"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/objstore"
	"github.com/duskbyte/courier-go/internal/ratelimit"
	"github.com/duskbyte/courier-go/internal/sentry"
	"github.com/duskbyte/courier-go/internal/session"
	"github.com/duskbyte/courier-go/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    betterStackToken(cfg),
		BetterStackEndpoint: cfg.BetterStack.Endpoint,
	})
	log.Info("Starting courier server")

	if cfg.Sentry.Enabled {
		if err := sentry.Initialize(sentry.Config{
			DSN:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			Release:          cfg.Sentry.Release,
			SampleRate:       cfg.Sentry.SampleRate,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			log.WithError(err).Error("Failed to initialize Sentry")
		} else if sentry.IsEnabled() {
			log.Info("Sentry error tracking enabled")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())
	m := metrics.New(registry)
	log.Info("Metrics initialized")

	// Snapshot archival only applies to the sqlite driver; other drivers
	// have their own durability story.
	var snapshotManager *snapshot.Manager
	if cfg.Snapshot.Enabled && cfg.Session.Driver == session.DriverSQLite {
		client, err := objstore.New(context.Background(), objstore.Config{
			Endpoint:        fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.Snapshot.AccountID),
			AccessKeyID:     cfg.Snapshot.AccessKeyID,
			SecretAccessKey: cfg.Snapshot.SecretAccessKey,
			BucketName:      cfg.Snapshot.BucketName,
		})
		if err != nil {
			log.WithError(err).Error("Failed to create object storage client, snapshots disabled")
		} else {
			snapshotManager = snapshot.New(client, snapshot.Config{
				SnapshotKey: cfg.Snapshot.Key + ".zst",
				LockKey:     cfg.Snapshot.Key + ".lock",
				Interval:    cfg.Snapshot.Interval,
				LockTTL:     3 * cfg.Snapshot.Interval,
			}, log)
		}
	}

	// Restore the previous session database before the store opens it.
	if snapshotManager != nil {
		if _, err := os.Stat(cfg.Session.SQLitePath()); os.IsNotExist(err) {
			restoreCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			err := snapshotManager.Restore(restoreCtx, cfg.Session.SQLitePath())
			cancel()
			switch {
			case errors.Is(err, snapshot.ErrNotFound):
				log.Info("No remote session snapshot, starting fresh")
			case err != nil:
				log.WithError(err).Warn("Session snapshot restore failed, starting fresh")
			default:
				log.Info("Session database restored from snapshot")
			}
		}
	}

	store, sqliteBackend, err := buildStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create session store")
	}
	log.WithField("driver", cfg.Session.Driver).
		WithField("expires_in", cfg.Session.ExpiresIn.String()).
		Info("Session store configured")

	senderLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:       "sender",
		Burst:      senderBurst,
		RefillRate: senderRefillRate,
		Metrics:    m,
	})
	defer senderLimiter.Stop()

	bots, err := buildBots(cfg, store, senderLimiter, log, m)
	if err != nil {
		log.WithError(err).Fatal("Failed to build connectors")
	}
	for _, pb := range bots {
		log.WithField("platform", pb.name).Info("Connector mounted")
	}

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(securityHeadersMiddleware())
	engine.Use(requestIDMiddleware())
	engine.Use(loggingMiddleware(log))
	if sentry.IsEnabled() {
		engine.Use(sentryMiddleware())
	}

	setupRoutes(engine, bots, store, registry, cfg, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      engine,
		ReadTimeout:  config.WebhookHTTPRead,
		WriteTimeout: config.WebhookHTTPWrite,
		IdleTimeout:  config.WebhookHTTPIdle,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	if sqliteBackend != nil && cfg.Session.ExpiresIn > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweepSessions(ctx, sqliteBackend, cfg.Session.ExpiresIn, m, log)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		updateSessionMetrics(ctx, store, cfg.Session.Driver, m, log)
	}()

	if snapshotManager != nil && sqliteBackend != nil {
		snapshotManager.Start(ctx, sqliteBackend)
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()

	goDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(goDone)
	}()
	select {
	case <-goDone:
		log.Info("All background goroutines stopped")
	case <-time.After(5 * time.Second):
		log.Warn("Timeout waiting for goroutines to stop")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	if snapshotManager != nil && sqliteBackend != nil {
		snapshotManager.Stop(shutdownCtx, sqliteBackend)
	}

	if err := store.Close(); err != nil {
		log.WithError(err).Error("Failed to close session store")
	}

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}
	if err := log.Shutdown(shutdownCtx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
	}

	log.Info("Server stopped")
}

// buildStore creates the configured session store. The sqlite backend is
// returned separately because the sweep and snapshot jobs need it.
func buildStore(cfg *config.Config, log *logger.Logger) (*session.Store, *session.SQLiteBackend, error) {
	if cfg.Session.Driver == session.DriverSQLite {
		backend := session.NewSQLiteBackend(cfg.Session.SQLitePath())
		return session.NewStore(backend, cfg.Session.ExpiresIn, log), backend, nil
	}

	store, err := session.NewStoreFromConfig(session.Config{
		Driver:        cfg.Session.Driver,
		ExpiresIn:     cfg.Session.ExpiresIn,
		MemoryMaxSize: cfg.Session.MaxSize,
		FileDir:       cfg.Session.FileDir,
		Redis: session.RedisOptions{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPass,
			DB:       cfg.Session.RedisDB,
		},
		Mongo: session.MongoOptions{
			URL:        cfg.Session.MongoURL,
			Collection: cfg.Session.MongoColl,
		},
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

// threadCachePath is where the facebook connector keeps resolved
// comment-thread roots.
func threadCachePath(cfg *config.Config) string {
	return filepath.Join(cfg.Session.DataDir, "threads.db")
}

func betterStackToken(cfg *config.Config) string {
	if !cfg.BetterStack.Enabled {
		return ""
	}
	return cfg.BetterStack.Token
}
