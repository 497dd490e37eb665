package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"package-dashboard/internal/config"
	"package-dashboard/internal/db"
	httpSrv "package-dashboard/internal/http"
	"package-dashboard/internal/migrations"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatal(err)
	}
	config.SetupLogging(cfg.LogLevel)

	// Run embedded migrations (idempotent)
	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		logrus.WithError(err).Fatal("migrations failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbase, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("cannot open database")
	}
	defer dbase.Close()

	asq := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asq.Close()

	srv := httpSrv.NewServer(cfg.HTTPAddr, &httpSrv.Server{
		Store:       db.NewPackageStore(dbase),
		Queue:       asq,
		Ping:        dbase.PingContext,
		Author:      cfg.CommentAuthor,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logrus.WithField("addr", cfg.HTTPAddr).Info("serving package dashboard")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatal(err)
	}
}
