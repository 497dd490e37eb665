package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"package-dashboard/internal/imagescan"
	"package-dashboard/internal/importer"
	"package-dashboard/internal/packages"
)

// ImageSizer measures an image reference in bytes.
type ImageSizer interface {
	ImageSize(ctx context.Context, ref string) (int64, error)
}

type Server struct {
	Store   packages.Store
	Objects importer.ObjectStore
	Images  ImageSizer
}

func (s *Server) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeImportSnapshot, s.handleImport)
	mux.HandleFunc(TypeExportSnapshot, s.handleExport)
	mux.HandleFunc(TypeRefreshImageSize, s.handleImageSize)
	return mux
}

func decode(t *asynq.Task, v any) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		return fmt.Errorf("%s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func (s *Server) handleImport(ctx context.Context, t *asynq.Task) error {
	var p ImportPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	log := logrus.WithField("source", p.Source)
	log.Info("starting snapshot import")

	rc, err := importer.OpenSource(ctx, p.Source, s.Objects)
	if err != nil {
		log.WithError(err).Error("cannot open snapshot")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	defer rc.Close()

	n, err := importer.Import(ctx, s.Store, rc)
	if err != nil {
		log.WithError(err).Error("snapshot import failed")
		return err
	}
	log.WithField("packages", n).Info("snapshot import finished")
	return nil
}

func (s *Server) handleExport(ctx context.Context, t *asynq.Task) error {
	var p ExportPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	var buf bytes.Buffer
	n, err := importer.Export(ctx, s.Store, &buf)
	if err != nil {
		return err
	}
	where, err := importer.WriteDestination(ctx, p.Destination, buf.Bytes(), s.Objects)
	if err != nil {
		logrus.WithError(err).Error("snapshot export failed")
		return err
	}
	logrus.WithFields(logrus.Fields{"packages": n, "destination": where}).Info("snapshot exported")
	return nil
}

func (s *Server) handleImageSize(ctx context.Context, t *asynq.Task) error {
	var p ImageSizePayload
	if err := decode(t, &p); err != nil {
		return err
	}
	log := logrus.WithField("package", p.PackageID)

	pkg, err := s.Store.Get(ctx, p.PackageID)
	if errors.Is(err, packages.ErrPackageNotFound) {
		log.Warn("package vanished before image size refresh")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	ref := imagescan.FirstImage(pkg.ImageNames)
	if ref == "" {
		log.Warn("package has no image to measure")
		return fmt.Errorf("package %s has no image names: %w", p.PackageID, asynq.SkipRetry)
	}
	if s.Images == nil {
		return fmt.Errorf("image scanner unavailable: %w", asynq.SkipRetry)
	}

	size, err := s.Images.ImageSize(ctx, ref)
	if err != nil {
		log.WithError(err).WithField("image", ref).Error("measuring image failed")
		return err
	}
	human := imagescan.HumanSize(size)
	if _, err := s.Store.SetImageSize(ctx, p.PackageID, human); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"image": ref, "size": human}).Info("image size refreshed")
	return nil
}

// Run serves tasks from redis at addr until the process is signalled.
func Run(addr string, s *Server) error {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: addr}, asynq.Config{
		Concurrency: 5,
		Logger:      logrus.StandardLogger(),
	})
	return srv.Run(s.mux())
}
