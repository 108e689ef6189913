package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Feuerhamster/memoria/internal/access"
	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/blob"
	"github.com/Feuerhamster/memoria/internal/config"
	"github.com/Feuerhamster/memoria/internal/dav"
	httpserver "github.com/Feuerhamster/memoria/internal/http"
	"github.com/Feuerhamster/memoria/internal/locks"
	"github.com/Feuerhamster/memoria/internal/store"
)

func main() {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.Info("starting memoria server")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("failed to create db pool")
	}
	defer pool.Close()

	if err := store.ApplyMigrations(ctx, pool); err != nil {
		log.WithError(err).Fatal("failed to apply migrations")
	}

	st := store.New(pool)
	blobs, err := blob.NewFSStore(cfg.Storage.Path)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize blob store")
	}

	checker := access.NewChecker(st.Spaces)
	lockManager := locks.NewManager()
	authService := auth.NewService(st)
	davHandler := dav.NewHandler(cfg, st, checker, blobs, lockManager)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpserver.NewRouter(cfg, st, authService, davHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}
