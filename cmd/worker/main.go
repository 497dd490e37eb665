package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"package-dashboard/internal/config"
	"package-dashboard/internal/db"
	"package-dashboard/internal/imagescan"
	"package-dashboard/internal/storage"
	"package-dashboard/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatal(err)
	}
	config.SetupLogging(cfg.LogLevel)

	ctx := context.Background()
	dbase, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("cannot open database")
	}
	defer dbase.Close()

	s := &worker.Server{Store: db.NewPackageStore(dbase)}
	if cfg.Storage.Enabled() {
		s3c, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			logrus.Fatal(err)
		}
		s.Objects = s3c
	} else {
		logrus.Warn("object storage not configured; s3:// sources and destinations are unavailable")
	}
	scanner, err := imagescan.New(cfg.DockerHost)
	if err != nil {
		logrus.WithError(err).Warn("docker unavailable; image size refresh disabled")
	} else {
		defer scanner.Close()
		s.Images = scanner
	}

	if err := worker.Run(cfg.RedisAddr, s); err != nil {
		logrus.Fatal(err)
	}
}
